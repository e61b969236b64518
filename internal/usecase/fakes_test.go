package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"PillarCast/internal/domain/models"
)

type memPredictionStore struct {
	mu      sync.Mutex
	records []models.PredictionRecord
	failing bool
}

func (s *memPredictionStore) Init(context.Context) error { return nil }

func (s *memPredictionStore) Persist(_ context.Context, rec models.PredictionRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return "", errors.New("disk full")
	}
	s.records = append(s.records, rec)
	return rec.ID, nil
}

func (s *memPredictionStore) Latest(context.Context) (*models.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return nil, nil
	}
	r := s.records[len(s.records)-1]
	return &r, nil
}

func (s *memPredictionStore) Range(_ context.Context, from, to time.Time, limit int) ([]models.PredictionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.PredictionRecord
	for _, r := range s.records {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memPredictionStore) Close() error { return nil }

type memSampleStore struct {
	mu      sync.Mutex
	samples []models.MetricSample
	broken  map[string]bool
}

func (s *memSampleStore) Init(context.Context) error { return nil }

func (s *memSampleStore) AppendSamples(_ context.Context, samples []models.MetricSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, samples...)
	return nil
}

func (s *memSampleStore) Values(_ context.Context, metric string, since time.Time) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.broken[metric] {
		return nil, errors.New("corrupt partition")
	}
	var out []float64
	for _, m := range s.samples {
		if m.MetricName == metric && !m.Timestamp.Before(since) {
			out = append(out, m.RawValue)
		}
	}
	return out, nil
}

func (s *memSampleStore) Close() error { return nil }

type fakeAdapter struct {
	name    string
	metrics []string
	values  map[string]float64
	err     error
	delay   time.Duration

	mu    sync.Mutex
	calls int
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Metrics() []string {
	out := append([]string(nil), a.metrics...)
	sort.Strings(out)
	return out
}

func (a *fakeAdapter) Fetch(ctx context.Context, _ []string) (map[string]float64, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.values, nil
}

func (a *fakeAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type staticSupplier struct {
	w  models.PillarWeights
	ok bool
}

func (s staticSupplier) SuggestedWeights() (models.PillarWeights, bool) { return s.w, s.ok }

type fixedPredictor struct {
	move     float64
	err      error
	seen     models.FeatureVector
	deadline time.Time
}

func (p *fixedPredictor) PredictMove(ctx context.Context, fv models.FeatureVector) (float64, error) {
	p.seen = fv
	p.deadline, _ = ctx.Deadline()
	return p.move, p.err
}
