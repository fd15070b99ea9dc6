package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/captable-cli/internal/model"
)

const metaSuffix = ".meta.json"

// FormPrefix maps a form type to its artifact key prefix ("10-K" -> "10K").
func FormPrefix(formType model.FormType) string {
	return strings.ReplaceAll(string(formType), "-", "")
}

// FilingStore persists filing documents with a sidecar metadata record,
// so freshness checks read an explicit filed-at instead of parsing
// filenames or trusting mtimes.
type FilingStore struct {
	gw     Gateway
	logger *zap.Logger
}

func NewFilingStore(gw Gateway, logger *zap.Logger) *FilingStore {
	return &FilingStore{gw: gw, logger: logger}
}

// Put stores the filing bytes and a sidecar ArtifactMeta next to them.
// Returns the content key.
func (s *FilingStore) Put(ctx context.Context, ref model.FilingRef, content []byte, contentType, ext string) (string, error) {
	now := time.Now().UTC()
	key := ArtifactKey(ref.Ticker, FormPrefix(ref.FormType), ext, now)

	if _, err := s.gw.Write(ctx, key, content, contentType); err != nil {
		return "", eris.Wrapf(err, "gateway: store filing %s", key)
	}

	meta := model.ArtifactMeta{
		Ticker:    strings.ToUpper(ref.Ticker),
		FormType:  ref.FormType,
		FiledAt:   ref.FiledAt,
		StoredAt:  now,
		SourceURL: ref.SourceURL,
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return "", eris.Wrapf(err, "gateway: marshal filing meta %s", key)
	}
	if _, err := s.gw.Write(ctx, key+metaSuffix, metaBytes, "application/json"); err != nil {
		return "", eris.Wrapf(err, "gateway: store filing meta %s", key)
	}
	return key, nil
}

// LatestMeta returns the sidecar metadata and content key of the most
// recently stored filing for ticker/formType. ErrNotFound when none exist.
func (s *FilingStore) LatestMeta(ctx context.Context, ticker string, formType model.FormType) (*model.ArtifactMeta, string, error) {
	entries, err := s.gw.List(ctx, TickerPrefix(ticker, FormPrefix(formType)))
	if err != nil {
		return nil, "", eris.Wrapf(err, "gateway: list filings %s %s", ticker, formType)
	}

	var content []Entry
	for _, e := range entries {
		if !strings.HasSuffix(e.Key, metaSuffix) {
			content = append(content, e)
		}
	}
	key := Latest(content)
	if key == "" {
		return nil, "", ErrNotFound
	}

	metaBytes, err := s.gw.Read(ctx, key+metaSuffix)
	if errors.Is(err, ErrNotFound) {
		// Filing stored without a sidecar; treat as absent so the
		// caller re-fetches rather than guessing its vintage.
		s.logger.Warn("filing missing sidecar metadata, ignoring",
			zap.String("key", key))
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", eris.Wrapf(err, "gateway: read filing meta %s", key)
	}

	var meta model.ArtifactMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, "", eris.Wrapf(err, "gateway: decode filing meta %s", key)
	}
	return &meta, key, nil
}

// ReadContent loads the stored filing bytes for a content key.
func (s *FilingStore) ReadContent(ctx context.Context, key string) ([]byte, error) {
	data, err := s.gw.Read(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, eris.Wrapf(err, "gateway: read filing %s", key)
	}
	return data, nil
}

// Invalidate deletes every stored filing (content and sidecars, both form
// types) for a ticker. Result artifacts are left untouched.
func (s *FilingStore) Invalidate(ctx context.Context, ticker string) error {
	for _, formType := range []model.FormType{model.Form10K, model.Form10Q} {
		entries, err := s.gw.List(ctx, TickerPrefix(ticker, FormPrefix(formType)))
		if err != nil {
			return eris.Wrapf(err, "gateway: list filings for invalidation %s", ticker)
		}
		for _, e := range entries {
			if err := s.gw.Delete(ctx, e.Key); err != nil {
				return eris.Wrapf(err, "gateway: invalidate %s", e.Key)
			}
		}
		if len(entries) > 0 {
			s.logger.Info("invalidated stale filings",
				zap.String("ticker", strings.ToUpper(ticker)),
				zap.String("form_type", string(formType)),
				zap.Int("count", len(entries)))
		}
	}
	return nil
}
