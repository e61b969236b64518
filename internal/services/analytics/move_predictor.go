package analytics

import (
	"context"
	"fmt"
	"math"

	"PillarCast/internal/domain/models"
	domsvc "PillarCast/internal/domain/service"
)

// HTTPMovePredictor asks the model service for a predicted percentage move.
type HTTPMovePredictor struct{ base *HTTPServiceBase }

func NewHTTPMovePredictor(base *HTTPServiceBase) *HTTPMovePredictor {
	return &HTTPMovePredictor{base: base}
}

type moveResp struct {
	Prediction float64 `json:"prediction"`
}

func (p *HTTPMovePredictor) PredictMove(ctx context.Context, fv models.FeatureVector) (float64, error) {
	var mr moveResp
	if err := p.base.PostJSON(ctx, "/predict", fv, &mr); err != nil {
		return 0, fmt.Errorf("predict move: %w", err)
	}
	if math.IsNaN(mr.Prediction) || math.IsInf(mr.Prediction, 0) {
		return 0, fmt.Errorf("predict move: non-finite prediction")
	}
	return mr.Prediction, nil
}

// LinearMovePredictor maps the composite linearly: (composite - 50) * sensitivity.
type LinearMovePredictor struct {
	Sensitivity float64
}

func NewLinearMovePredictor(sensitivity float64) *LinearMovePredictor {
	return &LinearMovePredictor{Sensitivity: sensitivity}
}

func (p *LinearMovePredictor) PredictMove(_ context.Context, fv models.FeatureVector) (float64, error) {
	return (fv.CompositeScore - models.NeutralScore) * p.Sensitivity, nil
}

var (
	_ domsvc.MovePredictor = (*HTTPMovePredictor)(nil)
	_ domsvc.MovePredictor = (*LinearMovePredictor)(nil)
)
