package repository

import (
	"context"
	"time"

	"PillarCast/internal/domain/models"
)

// SampleStore keeps the raw metric history used to fit normalization bounds.
type SampleStore interface {
	Init(ctx context.Context) error
	AppendSamples(ctx context.Context, samples []models.MetricSample) error
	// Values returns every raw value of metric observed at or after since.
	Values(ctx context.Context, metric string, since time.Time) ([]float64, error)
	Close() error
}

// PredictionStore is the append-only record log.
type PredictionStore interface {
	Init(ctx context.Context) error
	Persist(ctx context.Context, rec models.PredictionRecord) (string, error)
	Latest(ctx context.Context) (*models.PredictionRecord, error)
	Range(ctx context.Context, from, to time.Time, limit int) ([]models.PredictionRecord, error)
	Close() error
}

// Publisher forwards persisted records to an external transport.
type Publisher interface {
	PublishPrediction(ctx context.Context, rec models.PredictionRecord) error
	Close() error
}

type Metrics interface {
	RecordFetch(adapter, result string)
	RecordCacheLookup(hit bool)
	RecordRateLimitWait(provider string, seconds float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordPillarScore(pillar string, value float64)
	RecordPrediction(composite, move float64, category string)
}
