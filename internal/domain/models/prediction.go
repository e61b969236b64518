package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Category is the discrete trading signal derived from the predicted move.
type Category string

const (
	CategoryBullish Category = "Bullish"
	CategoryNeutral Category = "Neutral"
	CategoryBearish Category = "Bearish"
)

// WeightsSource tells whether a record used the fixed or a supplied weight vector.
type WeightsSource string

const (
	WeightsFixed   WeightsSource = "fixed"
	WeightsDynamic WeightsSource = "dynamic"
)

// ErrInvalidWeights is returned for negative weights or weights not summing to 1.
var ErrInvalidWeights = errors.New("invalid pillar weights")

const weightTolerance = 1e-6

// PillarWeights is the composite weight vector over the four pillars.
type PillarWeights struct {
	Technical   float64 `json:"technical" yaml:"technical" validate:"gte=0,lte=1"`
	Social      float64 `json:"social" yaml:"social" validate:"gte=0,lte=1"`
	Fundamental float64 `json:"fundamental" yaml:"fundamental" validate:"gte=0,lte=1"`
	Astrology   float64 `json:"astrology" yaml:"astrology" validate:"gte=0,lte=1"`
}

// DefaultPillarWeights is the fixed 40/25/20/15 split.
func DefaultPillarWeights() PillarWeights {
	return PillarWeights{Technical: 0.40, Social: 0.25, Fundamental: 0.20, Astrology: 0.15}
}

// Of returns the weight assigned to p.
func (w PillarWeights) Of(p Pillar) float64 {
	switch p {
	case PillarTechnical:
		return w.Technical
	case PillarSocial:
		return w.Social
	case PillarFundamental:
		return w.Fundamental
	case PillarAstrology:
		return w.Astrology
	}
	return 0
}

// Sum adds the four weights.
func (w PillarWeights) Sum() float64 {
	return w.Technical + w.Social + w.Fundamental + w.Astrology
}

// Validate checks non-negativity and that the vector sums to 1.
func (w PillarWeights) Validate() error {
	for _, p := range Pillars {
		v := w.Of(p)
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s weight %v", ErrInvalidWeights, p, v)
		}
	}
	if s := w.Sum(); math.Abs(s-1) > weightTolerance {
		return fmt.Errorf("%w: sum %.6f", ErrInvalidWeights, s)
	}
	return nil
}

// PredictionRecord is the immutable output of one ingestion cycle.
type PredictionRecord struct {
	ID              string         `json:"id"`
	Timestamp       time.Time      `json:"timestamp"`
	PillarScores    [4]PillarScore `json:"pillar_scores"`
	CompositeScore  float64        `json:"composite_score"`
	PredictedMove   float64        `json:"predicted_move_pct"`
	Category        Category       `json:"category"`
	Weights         PillarWeights  `json:"weights"`
	WeightsSource   WeightsSource  `json:"weights_source"`
	DegradedPillars []Pillar       `json:"degraded_pillars,omitempty"`
}

// Score returns the score of pillar p.
func (r PredictionRecord) Score(p Pillar) float64 {
	for _, ps := range r.PillarScores {
		if ps.Pillar == p {
			return ps.Value
		}
	}
	return NeutralScore
}

// Degraded reports whether any pillar used a neutral substitute.
func (r PredictionRecord) Degraded() bool { return len(r.DegradedPillars) > 0 }

// FeatureVector is what the downstream move model consumes.
type FeatureVector struct {
	TechScore      float64 `json:"tech_score"`
	SocialScore    float64 `json:"social_score"`
	FundScore      float64 `json:"fund_score"`
	AstroScore     float64 `json:"astro_score"`
	CompositeScore float64 `json:"composite_score"`
}
