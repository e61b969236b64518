package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"PillarCast/internal/domain/models"
	domrepo "PillarCast/internal/domain/repository"
	domsvc "PillarCast/internal/domain/service"
	"PillarCast/internal/service/cache"
	"PillarCast/internal/service/ratelimit"
	"PillarCast/internal/services/normalize"
	"PillarCast/internal/services/scoring"
	applogger "PillarCast/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProviderError is a failed or timed-out adapter call. The cycle degrades
// the adapter's metrics to neutral and carries on.
type ProviderError struct {
	Adapter string
	Err     error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("provider %s: %v", e.Adapter, e.Err) }

func (e *ProviderError) Unwrap() error { return e.Err }

// AdapterBinding pairs an adapter with its cache validity.
type AdapterBinding struct {
	Adapter domsvc.IngestionAdapter
	TTL     time.Duration
}

// CycleReport summarizes one ingestion cycle.
type CycleReport struct {
	Record  models.PredictionRecord
	Raw     map[string]float64
	Failed  []*ProviderError
	Missing []string
}

// IngestionCycle runs one fetch, normalize, score, compose and persist pass.
type IngestionCycle struct {
	adapters []AdapterBinding
	limiter  *ratelimit.Limiter
	cache    *cache.ResponseCache
	engine   *normalize.Engine
	scorer   *scoring.Scorer
	composer *PredictionComposer
	sink     *PredictionSink
	samples  domrepo.SampleStore
	metrics  domrepo.Metrics
	timeout  time.Duration
	now      func() time.Time
	tracer   trace.Tracer
	l        *applogger.Logger
}

// CycleOption configures the IngestionCycle.
type CycleOption func(*IngestionCycle)

// WithSampleStore records every raw value for later bound fitting.
func WithSampleStore(s domrepo.SampleStore) CycleOption {
	return func(c *IngestionCycle) { c.samples = s }
}

// WithCycleClock overrides the clock used for record and sample timestamps.
func WithCycleClock(now func() time.Time) CycleOption {
	return func(c *IngestionCycle) { c.now = now }
}

// WithTracer overrides the tracer; the global provider is used otherwise.
func WithTracer(t trace.Tracer) CycleOption {
	return func(c *IngestionCycle) { c.tracer = t }
}

func NewIngestionCycle(
	adapters []AdapterBinding,
	limiter *ratelimit.Limiter,
	rc *cache.ResponseCache,
	engine *normalize.Engine,
	scorer *scoring.Scorer,
	composer *PredictionComposer,
	sink *PredictionSink,
	metrics domrepo.Metrics,
	timeout time.Duration,
	l *applogger.Logger,
	opts ...CycleOption,
) *IngestionCycle {
	c := &IngestionCycle{
		adapters: adapters,
		limiter:  limiter,
		cache:    rc,
		engine:   engine,
		scorer:   scorer,
		composer: composer,
		sink:     sink,
		metrics:  metrics,
		timeout:  timeout,
		now:      time.Now,
		tracer:   otel.Tracer("pillarcast/usecase"),
		l:        l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes a cycle. Provider failures degrade the record; only a
// persistence failure is returned as an error.
func (c *IngestionCycle) Run(ctx context.Context) (*CycleReport, error) {
	started := c.now()
	ctx, span := c.tracer.Start(ctx, "ingestion.cycle")
	defer span.End()

	// Ingestion and the move prediction share the cycle budget; persistence does not.
	cycleCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, failed := c.ingest(cycleCtx)
	span.SetAttributes(attribute.Int("metrics", len(raw)), attribute.Int("failed_adapters", len(failed)))

	if c.samples != nil && len(raw) > 0 {
		if err := c.samples.AppendSamples(ctx, toSamples(raw, started)); err != nil {
			c.metrics.RecordError("samples")
			c.l.Warn("append metric samples failed", applogger.Error(err))
		}
	}

	// One snapshot for the whole cycle so a concurrent refit is never observed half-way.
	table := c.engine.Snapshot()
	normalized := make(map[string]float64, len(raw))
	for m, v := range raw {
		normalized[m] = table.Normalize(m, v)
	}

	res := c.scorer.Score(normalized)
	comp := NewComposition()
	degraded := make(map[models.Pillar]bool, len(res.Degraded))
	for _, p := range res.Degraded {
		degraded[p] = true
	}
	for _, ps := range res.Pillars {
		if err := comp.SetPillar(ps, degraded[ps.Pillar]); err != nil {
			return nil, err
		}
		c.metrics.RecordPillarScore(string(ps.Pillar), ps.Value)
	}
	if len(res.Missing) > 0 {
		c.l.Warn("metrics missing, neutral score substituted", applogger.Strings("metrics", res.Missing))
	}

	rec, err := c.composer.Compose(cycleCtx, started, comp)
	if err != nil {
		return nil, err
	}
	rec, err = c.sink.Persist(ctx, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, err
	}

	c.metrics.RecordPrediction(rec.CompositeScore, rec.PredictedMove, string(rec.Category))
	c.metrics.RecordLatency("cycle", c.now().Sub(started).Seconds())
	c.l.Info("prediction composed",
		applogger.String("id", rec.ID),
		applogger.Float64("composite", rec.CompositeScore),
		applogger.Float64("move_pct", rec.PredictedMove),
		applogger.String("category", string(rec.Category)),
		applogger.String("weights", string(rec.WeightsSource)),
		applogger.Int("degraded_pillars", len(rec.DegradedPillars)),
	)

	return &CycleReport{Record: rec, Raw: raw, Failed: failed, Missing: res.Missing}, nil
}

type fetchResult struct {
	name   string
	values map[string]float64
	err    error
}

// ingest fans out to every adapter and waits until all have settled or the
// cycle deadline carried by ctx passes. Adapters still pending at the deadline
// count as failed.
func (c *IngestionCycle) ingest(ctx context.Context) (map[string]float64, []*ProviderError) {
	ch := make(chan fetchResult, len(c.adapters))
	pending := make(map[string]bool, len(c.adapters))
	for _, b := range c.adapters {
		pending[b.Adapter.Name()] = true
		go func(b AdapterBinding) {
			vals, err := c.fetch(ctx, b)
			ch <- fetchResult{name: b.Adapter.Name(), values: vals, err: err}
		}(b)
	}

	raw := make(map[string]float64)
	var failed []*ProviderError
	for len(pending) > 0 {
		select {
		case r := <-ch:
			delete(pending, r.name)
			if r.err != nil {
				failed = append(failed, c.fail(r.name, r.err))
				continue
			}
			c.metrics.RecordFetch(r.name, "ok")
			for m, v := range r.values {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					c.l.Warn("dropping non-finite metric", applogger.String("adapter", r.name), applogger.String("metric", m))
					continue
				}
				raw[m] = v
			}
		case <-ctx.Done():
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				failed = append(failed, c.fail(name, ctx.Err()))
			}
			return raw, failed
		}
	}
	return raw, failed
}

func (c *IngestionCycle) fail(name string, err error) *ProviderError {
	result := "error"
	if errors.Is(err, context.DeadlineExceeded) {
		result = "timeout"
	}
	c.metrics.RecordFetch(name, result)
	c.l.Warn("provider failed, degrading its metrics to neutral", applogger.String("adapter", name), applogger.Error(err))
	return &ProviderError{Adapter: name, Err: err}
}

func (c *IngestionCycle) fetch(ctx context.Context, b AdapterBinding) (map[string]float64, error) {
	name := b.Adapter.Name()
	ctx, span := c.tracer.Start(ctx, "ingestion.fetch", trace.WithAttributes(attribute.String("adapter", name)))
	defer span.End()

	metrics := b.Adapter.Metrics()
	sort.Strings(metrics)
	key := name + ":" + strings.Join(metrics, ",")

	start := time.Now()
	vals, err := cache.GetOrFetch(ctx, c.cache, key, b.TTL, func(ctx context.Context) (map[string]float64, error) {
		if err := c.limiter.Acquire(ctx, name); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		return b.Adapter.Fetch(ctx, metrics)
	})
	c.metrics.RecordLatency("fetch_"+name, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}
	return vals, nil
}

func toSamples(raw map[string]float64, at time.Time) []models.MetricSample {
	out := make([]models.MetricSample, 0, len(raw))
	for m, v := range raw {
		out = append(out, models.MetricSample{MetricName: m, RawValue: v, Timestamp: at.UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricName < out[j].MetricName })
	return out
}
