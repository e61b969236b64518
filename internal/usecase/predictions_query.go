package usecase

import (
	"context"
	"fmt"
	"time"

	"PillarCast/internal/domain/models"
	domrepo "PillarCast/internal/domain/repository"
	"PillarCast/internal/services/normalize"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// PredictionsQuery serves stored records and the current bounds table.
type PredictionsQuery struct {
	store  domrepo.PredictionStore
	engine *normalize.Engine
}

func NewPredictionsQuery(store domrepo.PredictionStore, engine *normalize.Engine) *PredictionsQuery {
	return &PredictionsQuery{store: store, engine: engine}
}

type GetPredictionsParams struct {
	From  time.Time
	To    time.Time
	Limit int
}

type GetPredictionsResult struct {
	From    time.Time                 `json:"from"`
	To      time.Time                 `json:"to"`
	Count   int                       `json:"count"`
	Records []models.PredictionRecord `json:"records"`
}

// Latest returns the newest record, or nil when none exists yet.
func (q *PredictionsQuery) Latest(ctx context.Context) (*models.PredictionRecord, error) {
	rec, err := q.store.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest prediction: %w", err)
	}
	return rec, nil
}

func (q *PredictionsQuery) History(ctx context.Context, p GetPredictionsParams) (*GetPredictionsResult, error) {
	if p.From.After(p.To) {
		return nil, fmt.Errorf("from must be <= to")
	}
	if p.Limit <= 0 {
		p.Limit = defaultHistoryLimit
	}
	if p.Limit > maxHistoryLimit {
		p.Limit = maxHistoryLimit
	}

	recs, err := q.store.Range(ctx, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("prediction history: %w", err)
	}
	if recs == nil {
		recs = []models.PredictionRecord{}
	}
	return &GetPredictionsResult{From: p.From, To: p.To, Count: len(recs), Records: recs}, nil
}

// Bounds returns the bounds table in effect right now.
func (q *PredictionsQuery) Bounds() []models.NormalizationBounds {
	return q.engine.Snapshot().All()
}
