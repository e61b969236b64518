// Package normalize maps raw metric values onto the common 0..100 scale
// using min-max bounds fitted from the metric's sample history.
package normalize

import (
	"errors"
	"math"
	"sort"
	"sync/atomic"

	"PillarCast/internal/domain/models"
	applogger "PillarCast/pkg/logger"

	"gonum.org/v1/gonum/floats"
)

// ErrNoSamples is returned when bounds are fitted from an empty history.
var ErrNoSamples = errors.New("no samples")

// FitBounds returns the plain min/max of samples. Non-finite values are ignored.
func FitBounds(metric string, samples []float64) (models.NormalizationBounds, error) {
	finite := make([]float64, 0, len(samples))
	for _, v := range samples {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return models.NormalizationBounds{MetricName: metric}, ErrNoSamples
	}
	return models.NormalizationBounds{
		MetricName: metric,
		Min:        floats.Min(finite),
		Max:        floats.Max(finite),
	}, nil
}

// Scale maps raw into [0,100] against b. A degenerate range yields the neutral score.
func Scale(b models.NormalizationBounds, raw float64) float64 {
	if math.IsNaN(raw) || b.Max <= b.Min {
		return models.NeutralScore
	}
	return clamp((raw-b.Min)/(b.Max-b.Min)*100, 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Table is an immutable snapshot of bounds by metric name.
type Table struct {
	bounds map[string]models.NormalizationBounds
}

// NewTable builds a table; later entries for the same metric win.
func NewTable(bounds ...models.NormalizationBounds) *Table {
	t := &Table{bounds: make(map[string]models.NormalizationBounds, len(bounds))}
	for _, b := range bounds {
		t.bounds[b.MetricName] = b
	}
	return t
}

// Bounds returns the bounds of metric, if any.
func (t *Table) Bounds(metric string) (models.NormalizationBounds, bool) {
	if t == nil {
		return models.NormalizationBounds{}, false
	}
	b, ok := t.bounds[metric]
	return b, ok
}

// Normalize returns the neutral score when metric has no bounds.
func (t *Table) Normalize(metric string, raw float64) float64 {
	b, ok := t.Bounds(metric)
	if !ok {
		return models.NeutralScore
	}
	return Scale(b, raw)
}

// All returns the bounds sorted by metric name.
func (t *Table) All() []models.NormalizationBounds {
	if t == nil {
		return nil
	}
	out := make([]models.NormalizationBounds, 0, len(t.bounds))
	for _, b := range t.bounds {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricName < out[j].MetricName })
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.bounds)
}

// Engine holds the current bounds table. Refits replace the table wholesale;
// readers holding an older snapshot keep using it undisturbed.
type Engine struct {
	table  atomic.Pointer[Table]
	static map[string]models.NormalizationBounds
	l      *applogger.Logger
}

// NewEngine creates an engine seeded with static bounds only.
func NewEngine(static []models.NormalizationBounds, l *applogger.Logger) *Engine {
	e := &Engine{static: make(map[string]models.NormalizationBounds, len(static)), l: l}
	for _, b := range static {
		b.Static = true
		e.static[b.MetricName] = b
	}
	e.Swap(nil)
	return e
}

// Snapshot returns the current table. Use one snapshot for a whole cycle.
func (e *Engine) Snapshot() *Table {
	return e.table.Load()
}

// Normalize scores raw against the current table.
func (e *Engine) Normalize(metric string, raw float64) float64 {
	t := e.Snapshot()
	if _, ok := t.Bounds(metric); !ok {
		e.l.Debug("no bounds for metric, using neutral score", applogger.String("metric", metric))
	}
	return t.Normalize(metric, raw)
}

// Swap installs fitted bounds merged with the static ones. Static bounds win.
func (e *Engine) Swap(fitted []models.NormalizationBounds) {
	merged := make([]models.NormalizationBounds, 0, len(fitted)+len(e.static))
	for _, b := range fitted {
		if _, ok := e.static[b.MetricName]; ok {
			continue
		}
		merged = append(merged, b)
	}
	for _, b := range e.static {
		merged = append(merged, b)
	}
	e.table.Store(NewTable(merged...))
}

// IsStatic reports whether metric has configured bounds that are never refitted.
func (e *Engine) IsStatic(metric string) bool {
	_, ok := e.static[metric]
	return ok
}

// Fit computes bounds for every metric with samples. Metrics with empty
// history are left out so they normalize to the neutral score.
func Fit(history map[string][]float64) []models.NormalizationBounds {
	out := make([]models.NormalizationBounds, 0, len(history))
	for metric, samples := range history {
		b, err := FitBounds(metric, samples)
		if err != nil {
			continue
		}
		out = append(out, b)
	}
	return out
}

// DefaultStaticBounds covers metrics that already live on a fixed scale.
func DefaultStaticBounds() []models.NormalizationBounds {
	out := []models.NormalizationBounds{
		{MetricName: "rsi", Min: 0, Max: 100},
		{MetricName: "fear_greed", Min: 0, Max: 100},
		{MetricName: "sentiment_up_pct", Min: 0, Max: 100},
	}
	for _, k := range models.AstrologyKinds {
		out = append(out, models.NormalizationBounds{MetricName: k.MetricName(), Min: 0, Max: 100})
	}
	return out
}
