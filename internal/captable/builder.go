package captable

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/captable-cli/internal/config"
	"github.com/sells-group/captable-cli/internal/filings"
	"github.com/sells-group/captable-cli/internal/gateway"
	"github.com/sells-group/captable-cli/internal/model"
	"github.com/sells-group/captable-cli/internal/resilience"
	"github.com/sells-group/captable-cli/internal/textract"
	"github.com/sells-group/captable-cli/pkg/anthropic"
)

// Artifact key prefixes under {ticker}/.
const (
	resultPrefix = "captable"
	rawPrefix    = "captable_raw"
)

// Builder runs the capitalization-table pipeline for one ticker at a
// time. Concurrent builds for different tickers are independent;
// same-ticker builds are not deduplicated here and need an external
// lock if the caller requires at-most-one in flight.
type Builder struct {
	source filings.Source
	llm    anthropic.Client
	gw     gateway.Gateway
	store  *gateway.FilingStore
	cfg    config.Config
	logger *zap.Logger
}

// NewBuilder wires the pipeline dependencies.
func NewBuilder(source filings.Source, llm anthropic.Client, gw gateway.Gateway, cfg config.Config, logger *zap.Logger) *Builder {
	return &Builder{
		source: source,
		llm:    llm,
		gw:     gw,
		store:  gateway.NewFilingStore(gw, logger),
		cfg:    cfg,
		logger: logger,
	}
}

// fetched is one downloaded filing plus its extracted text.
type fetched struct {
	ref  model.FilingRef
	text string
}

// Build produces a BuildResult for the ticker. With forceRefresh the
// cached-result short circuit is skipped and filings are re-fetched
// regardless of freshness.
func (b *Builder) Build(ctx context.Context, ticker string, forceRefresh bool) (*model.BuildResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, eris.New("captable: ticker is required")
	}
	logger := b.logger.With(zap.String("ticker", ticker))

	if !forceRefresh {
		fresh, err := b.tickerIsFresh(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if fresh {
			if res, err := b.loadCachedResult(ctx, ticker); err == nil {
				logger.Info("returning cached result")
				return res, nil
			} else if !errors.Is(err, gateway.ErrNotFound) {
				return nil, err
			}
			// Fresh filings but no stored result yet: rebuild from the
			// stored documents without re-fetching.
		}
	} else if err := b.store.Invalidate(ctx, ticker); err != nil {
		return nil, err
	}

	doc10K, doc10Q, err := b.fetchFilings(ctx, ticker, logger)
	if err != nil {
		return b.errorFallback(ctx, ticker, logger, err)
	}

	text10Q := ""
	if doc10Q != nil {
		text10Q = doc10Q.text
	}
	userContent := buildUserContent(doc10K.text, text10Q)

	rawResponse, err := b.callLLM(ctx, userContent, logger)
	if err != nil {
		return b.errorFallback(ctx, ticker, logger, err)
	}

	payload, err := extractJSONPayload(rawResponse)
	if err != nil {
		return b.errorFallback(ctx, ticker, logger, err)
	}

	var rec model.CapTableRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		logger.Warn("model output is not valid JSON, returning raw text", zap.Error(err))
		return b.persistRaw(ctx, ticker, rawResponse, err, logger)
	}
	if rec.Ticker == "" {
		rec.Ticker = ticker
	}

	rec = Compute(rec)

	result := &model.BuildResult{
		Ticker: ticker,
		Status: model.StatusOK,
		Record: &rec,
	}
	if err := b.persist(ctx, result, logger); err != nil {
		return nil, err
	}
	return result, nil
}

// fetchFilings resolves and downloads the annual report (mandatory) and
// the quarterly report (optional), storing each with its metadata.
func (b *Builder) fetchFilings(ctx context.Context, ticker string, logger *zap.Logger) (*fetched, *fetched, error) {
	doc10K, err := b.fetchOne(ctx, ticker, model.Form10K, logger)
	if err != nil {
		return nil, nil, err
	}
	if doc10K == nil {
		return nil, nil, eris.Errorf("captable: no 10-K on record for %s", ticker)
	}

	if err := b.source.FormDelay(ctx); err != nil {
		return nil, nil, err
	}

	doc10Q, err := b.fetchOne(ctx, ticker, model.Form10Q, logger)
	if err != nil {
		// The quarterly report is optional; a failed fetch degrades to
		// annual-report-only rather than aborting.
		logger.Warn("10-Q fetch failed, continuing with 10-K only", zap.Error(err))
		doc10Q = nil
	}
	return doc10K, doc10Q, nil
}

// fetchOne returns the stored filing when a fresh copy is held,
// otherwise downloads, stores, and extracts the latest one. nil when
// the ticker has never filed the form.
func (b *Builder) fetchOne(ctx context.Context, ticker string, formType model.FormType, logger *zap.Logger) (*fetched, error) {
	meta, key, err := b.store.LatestMeta(ctx, ticker, formType)
	if err == nil {
		content, readErr := b.store.ReadContent(ctx, key)
		if readErr == nil {
			ref := model.FilingRef{Ticker: ticker, FormType: formType, FiledAt: meta.FiledAt, SourceURL: meta.SourceURL, LocalPath: key}
			return &fetched{ref: ref, text: b.extractText(content, "", ref, logger)}, nil
		}
		logger.Warn("stored filing unreadable, refetching",
			zap.String("key", key), zap.Error(readErr))
	} else if !errors.Is(err, gateway.ErrNotFound) {
		return nil, err
	}

	ref, err := b.source.GetLatest(ctx, ticker, formType)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, nil
	}

	content, contentType, err := b.source.Render(ctx, *ref)
	if err != nil {
		return nil, err
	}

	ext := "pdf"
	if strings.Contains(contentType, "html") {
		ext = "html"
	}
	storedKey, err := b.store.Put(ctx, *ref, content, contentType, ext)
	if err != nil {
		return nil, err
	}
	ref.LocalPath = storedKey

	return &fetched{ref: *ref, text: b.extractText(content, contentType, *ref, logger)}, nil
}

// extractText converts filing bytes to text. Extraction failure is
// logged and yields empty text; the model still gets the other
// filing's context.
func (b *Builder) extractText(content []byte, contentType string, ref model.FilingRef, logger *zap.Logger) string {
	res := textract.ForContent(content, contentType).Extract(content)
	if res.Degraded {
		logger.Warn("text extraction degraded",
			zap.String("form_type", string(ref.FormType)),
			zap.Error(res.Err))
	}
	return res.Text
}

// callLLM submits the combined filing text at temperature zero, with
// bounded retry on transient failures and a per-call timeout.
func (b *Builder) callLLM(ctx context.Context, userContent string, logger *zap.Logger) (string, error) {
	temperature := 0.0
	req := anthropic.MessageRequest{
		Model:       b.cfg.Anthropic.Model,
		MaxTokens:   b.cfg.Anthropic.MaxTokens,
		System:      systemInstruction,
		Messages:    []anthropic.Message{{Role: "user", Content: userContent}},
		Temperature: &temperature,
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "create_message")

	resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, b.cfg.Anthropic.LLMTimeout())
		defer cancel()
		return b.llm.CreateMessage(callCtx, req)
	})
	if err != nil {
		return "", eris.Wrap(err, "captable: llm call")
	}

	resp.Usage.LogCost(b.cfg.Anthropic.Model, "captable_extraction")
	return resp.Text(), nil
}

// persist writes the JSON, CSV, and XLSX artifacts under one timestamp
// and records their locations on the result.
func (b *Builder) persist(ctx context.Context, result *model.BuildResult, logger *zap.Logger) error {
	now := time.Now().UTC()

	jsonBytes, err := json.MarshalIndent(result.Record, "", "  ")
	if err != nil {
		return eris.Wrap(err, "captable: marshal record")
	}
	result.JSON = jsonBytes

	csvBytes, err := renderCSV(*result.Record)
	if err != nil {
		return eris.Wrap(err, "captable: render csv")
	}
	result.CSV = csvBytes

	xlsxBytes, err := renderXLSX(*result.Record)
	if err != nil {
		return eris.Wrap(err, "captable: render xlsx")
	}

	for _, artifact := range []struct {
		ext         string
		contentType string
		data        []byte
	}{
		{"json", "application/json", jsonBytes},
		{"csv", "text/csv", csvBytes},
		{"xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsxBytes},
	} {
		key := gateway.ArtifactKey(result.Ticker, resultPrefix, artifact.ext, now)
		loc, err := b.gw.Write(ctx, key, artifact.data, artifact.contentType)
		if err != nil {
			return err
		}
		result.ArtifactLocations = append(result.ArtifactLocations, loc)
	}

	logger.Info("persisted captable artifacts",
		zap.Strings("locations", result.ArtifactLocations))
	return nil
}

// persistRaw stores an unparseable model response and returns it as a
// warning result.
func (b *Builder) persistRaw(ctx context.Context, ticker, raw string, parseErr error, logger *zap.Logger) (*model.BuildResult, error) {
	key := gateway.ArtifactKey(ticker, rawPrefix, "txt", time.Now().UTC())
	loc, err := b.gw.Write(ctx, key, []byte(raw), "text/plain")
	if err != nil {
		return nil, err
	}

	return &model.BuildResult{
		Ticker:            ticker,
		Status:            model.StatusWarning,
		RawOutput:         raw,
		Warning:           eris.Wrap(parseErr, "captable: model output did not parse as JSON").Error(),
		ArtifactLocations: []string{loc},
	}, nil
}

// loadCachedResult returns the most recently persisted record for the
// ticker. gateway.ErrNotFound when none has been stored.
func (b *Builder) loadCachedResult(ctx context.Context, ticker string) (*model.BuildResult, error) {
	entries, err := b.gw.List(ctx, gateway.TickerPrefix(ticker, resultPrefix))
	if err != nil {
		return nil, err
	}

	var jsonEntries []gateway.Entry
	for _, e := range entries {
		if strings.HasSuffix(e.Key, ".json") {
			jsonEntries = append(jsonEntries, e)
		}
	}
	key := gateway.Latest(jsonEntries)
	if key == "" {
		return nil, gateway.ErrNotFound
	}

	data, err := b.gw.Read(ctx, key)
	if err != nil {
		return nil, err
	}

	var rec model.CapTableRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrapf(err, "captable: decode cached result %s", key)
	}

	return &model.BuildResult{
		Ticker: ticker,
		Status: model.StatusOK,
		Cached: true,
		Record: &rec,
		JSON:   data,
	}, nil
}

// errorFallback serves the last persisted result when a pipeline stage
// fails. Without one the failure is terminal.
func (b *Builder) errorFallback(ctx context.Context, ticker string, logger *zap.Logger, cause error) (*model.BuildResult, error) {
	res, err := b.loadCachedResult(ctx, ticker)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return nil, eris.Wrapf(cause, "captable: build failed for %s and no cached result exists", ticker)
		}
		return nil, err
	}

	logger.Warn("build failed, serving last cached result", zap.Error(cause))
	res.Warning = "serving cached result after build failure: " + cause.Error()
	return res, nil
}
