package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "PillarCast/internal/domain/repository"
	"PillarCast/internal/services/normalize"
	applogger "PillarCast/pkg/logger"
)

// BoundsRefresher refits normalization bounds from the stored sample history.
type BoundsRefresher struct {
	samples  domrepo.SampleStore
	engine   *normalize.Engine
	metrics  []string
	lookback time.Duration
	now      func() time.Time
	l        *applogger.Logger
}

func NewBoundsRefresher(samples domrepo.SampleStore, engine *normalize.Engine, metrics []string, lookback time.Duration, l *applogger.Logger) *BoundsRefresher {
	return &BoundsRefresher{samples: samples, engine: engine, metrics: metrics, lookback: lookback, now: time.Now, l: l}
}

// Refresh fits bounds for every non-static metric and swaps the table in one step.
// A metric whose history cannot be read keeps no fitted bounds and scores neutral.
func (r *BoundsRefresher) Refresh(ctx context.Context) error {
	since := r.now().Add(-r.lookback)
	history := make(map[string][]float64, len(r.metrics))
	var readErrs int
	for _, m := range r.metrics {
		if r.engine.IsStatic(m) {
			continue
		}
		vals, err := r.samples.Values(ctx, m, since)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("refresh bounds: %w", ctx.Err())
			}
			readErrs++
			r.l.Warn("read metric history failed", applogger.String("metric", m), applogger.Error(err))
			continue
		}
		history[m] = vals
	}

	fitted := normalize.Fit(history)
	r.engine.Swap(fitted)
	r.l.Info("normalization bounds refitted",
		applogger.Int("fitted", len(fitted)),
		applogger.Int("table", r.engine.Snapshot().Len()),
		applogger.Int("read_errors", readErrs),
	)
	return nil
}
