package astrology

import (
	"context"
	"time"

	"PillarCast/internal/domain/models"
	"PillarCast/internal/domain/service"
)

// AdapterName is the provider key of the ephemeris-backed adapter.
const AdapterName = "ephemeris"

// Adapter exposes the index through the same contract as network providers,
// so the cycle schedules, times out and degrades it uniformly.
type Adapter struct {
	idx *Index
	now func() time.Time
}

var _ service.IngestionAdapter = (*Adapter)(nil)

func NewAdapter(idx *Index, now func() time.Time) *Adapter {
	if now == nil {
		now = time.Now
	}
	return &Adapter{idx: idx, now: now}
}

func (a *Adapter) Name() string { return AdapterName }

func (a *Adapter) Metrics() []string {
	out := make([]string, 0, len(models.AstrologyKinds))
	for _, k := range models.AstrologyKinds {
		out = append(out, k.MetricName())
	}
	return out
}

func (a *Adapter) Fetch(ctx context.Context, metrics []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := a.idx.Evaluate(a.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		want[m] = true
	}
	out := make(map[string]float64, len(metrics))
	for _, s := range r.SubIndices {
		if name := s.Kind.MetricName(); want[name] {
			out[name] = s.Normalized
		}
	}
	return out, nil
}
