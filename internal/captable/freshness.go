package captable

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/captable-cli/internal/gateway"
	"github.com/sells-group/captable-cli/internal/model"
)

// freshCheck is the outcome of comparing a stored filing against the
// index's latest. latest is the index's FilingRef when the query
// succeeded; reused by the fetch phase to avoid querying twice.
type freshCheck struct {
	held   bool
	fresh  bool
	latest *model.FilingRef
}

// checkFreshness compares the stored filing's filed-at with the latest
// the index reports. A stored filing with no newer counterpart is
// fresh. When the index query fails the stored filing is kept
// (availability over freshness) and the failure is logged.
func (b *Builder) checkFreshness(ctx context.Context, ticker string, formType model.FormType) freshCheck {
	meta, _, err := b.store.LatestMeta(ctx, ticker, formType)
	if errors.Is(err, gateway.ErrNotFound) {
		return freshCheck{}
	}
	if err != nil {
		b.logger.Warn("reading stored filing metadata failed, treating as absent",
			zap.String("ticker", ticker),
			zap.String("form_type", string(formType)),
			zap.Error(err))
		return freshCheck{}
	}

	latest, err := b.source.GetLatest(ctx, ticker, formType)
	if err != nil {
		b.logger.Warn("filing index query failed, keeping stored filing",
			zap.String("ticker", ticker),
			zap.String("form_type", string(formType)),
			zap.Error(err))
		return freshCheck{held: true, fresh: true}
	}
	if latest == nil {
		return freshCheck{held: true, fresh: true}
	}

	if meta.FiledAt.Before(latest.FiledAt) {
		b.logger.Info("stored filing is stale",
			zap.String("ticker", ticker),
			zap.String("form_type", string(formType)),
			zap.Time("stored_filed_at", meta.FiledAt),
			zap.Time("latest_filed_at", latest.FiledAt))
		return freshCheck{held: true, fresh: false, latest: latest}
	}
	return freshCheck{held: true, fresh: true, latest: latest}
}

// tickerIsFresh decides whether the stored filings of a ticker can back
// a cached result. The annual report must be held and fresh; a held
// quarterly report must also be fresh. Staleness of either invalidates
// every stored filing of the ticker so no mixed-vintage pair survives.
func (b *Builder) tickerIsFresh(ctx context.Context, ticker string) (bool, error) {
	check10K := b.checkFreshness(ctx, ticker, model.Form10K)
	if check10K.held && !check10K.fresh {
		if err := b.store.Invalidate(ctx, ticker); err != nil {
			return false, err
		}
		return false, nil
	}
	if !check10K.held {
		return false, nil
	}

	check10Q := b.checkFreshness(ctx, ticker, model.Form10Q)
	if check10Q.held && !check10Q.fresh {
		if err := b.store.Invalidate(ctx, ticker); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}
