package service

import (
	"context"
	"time"

	"PillarCast/internal/domain/models"
)

// IngestionAdapter fetches raw metric values from one provider.
type IngestionAdapter interface {
	// Name doubles as the rate-limit and cache namespace of the adapter.
	Name() string
	// Metrics lists every metric the adapter can produce.
	Metrics() []string
	Fetch(ctx context.Context, metrics []string) (map[string]float64, error)
}

// EphemerisProvider computes geocentric positions.
type EphemerisProvider interface {
	PositionAt(body models.Body, instant time.Time) (models.Position, error)
}

// WeightSupplier optionally overrides the fixed composite weights.
type WeightSupplier interface {
	SuggestedWeights() (models.PillarWeights, bool)
}

// MovePredictor maps a pillar feature vector to a predicted percentage move.
type MovePredictor interface {
	PredictMove(ctx context.Context, fv models.FeatureVector) (float64, error)
}
