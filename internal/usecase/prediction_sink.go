package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"PillarCast/internal/domain/models"
	domrepo "PillarCast/internal/domain/repository"
	"PillarCast/internal/service/broadcast"
	applogger "PillarCast/pkg/logger"
)

// PredictionSink persists records in timestamp order and fans them out.
// Fan-out happens after the write and never fails it.
type PredictionSink struct {
	store      domrepo.PredictionStore
	hub        *broadcast.Hub
	publishers []domrepo.Publisher
	metrics    domrepo.Metrics

	mu   sync.Mutex
	last time.Time
	l    *applogger.Logger
}

func NewPredictionSink(store domrepo.PredictionStore, hub *broadcast.Hub, metrics domrepo.Metrics, l *applogger.Logger, publishers ...domrepo.Publisher) *PredictionSink {
	return &PredictionSink{store: store, hub: hub, publishers: publishers, metrics: metrics, l: l}
}

// Prime loads the newest stored timestamp so keys keep increasing across restarts.
func (s *PredictionSink) Prime(ctx context.Context) error {
	latest, err := s.store.Latest(ctx)
	if err != nil {
		return fmt.Errorf("load latest prediction: %w", err)
	}
	if latest == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if latest.Timestamp.After(s.last) {
		s.last = latest.Timestamp
	}
	return nil
}

// Persist appends rec. A timestamp not after the previous one is bumped by
// one millisecond past it. The stored record is returned.
func (s *PredictionSink) Persist(ctx context.Context, rec models.PredictionRecord) (models.PredictionRecord, error) {
	s.mu.Lock()
	if !rec.Timestamp.After(s.last) {
		rec.Timestamp = s.last.Add(time.Millisecond)
	}
	start := time.Now()
	id, err := s.store.Persist(ctx, rec)
	if err != nil {
		s.mu.Unlock()
		s.metrics.RecordError("persist")
		return models.PredictionRecord{}, fmt.Errorf("persist prediction: %w", err)
	}
	s.last = rec.Timestamp
	s.mu.Unlock()

	s.metrics.RecordLatency("persist", time.Since(start).Seconds())
	rec.ID = id

	if s.hub != nil {
		s.hub.Publish(rec)
	}
	for _, p := range s.publishers {
		if err := p.PublishPrediction(ctx, rec); err != nil {
			s.metrics.RecordError("publish")
			s.l.Warn("publish prediction failed", applogger.String("id", rec.ID), applogger.Error(err))
		}
	}
	return rec, nil
}
