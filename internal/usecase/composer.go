package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"PillarCast/internal/domain/models"
	domsvc "PillarCast/internal/domain/service"
	applogger "PillarCast/pkg/logger"

	"github.com/google/uuid"
)

// ErrAlreadyComposed is returned when a finished composition is reused.
var ErrAlreadyComposed = errors.New("composition already composed")

// CompositionState is the lifecycle of one cycle's composition.
type CompositionState int

const (
	StateComputing CompositionState = iota
	StateComposed
)

func (s CompositionState) String() string {
	if s == StateComposed {
		return "composed"
	}
	return "computing"
}

// Composition gathers the four pillar scores of one cycle.
type Composition struct {
	state    CompositionState
	scores   [4]models.PillarScore
	have     [4]bool
	degraded [4]bool
}

func NewComposition() *Composition { return &Composition{} }

func (c *Composition) State() CompositionState { return c.state }

// SetPillar records a pillar score. degraded marks a score that used neutral substitutes.
func (c *Composition) SetPillar(ps models.PillarScore, degraded bool) error {
	if c.state == StateComposed {
		return ErrAlreadyComposed
	}
	for i, p := range models.Pillars {
		if p == ps.Pillar {
			c.scores[i] = ps
			c.have[i] = true
			c.degraded[i] = degraded
			return nil
		}
	}
	return fmt.Errorf("unknown pillar %q", ps.Pillar)
}

// finish fills any pillar that never arrived with the neutral score.
func (c *Composition) finish() ([4]models.PillarScore, []models.Pillar) {
	var deg []models.Pillar
	for i, p := range models.Pillars {
		if !c.have[i] {
			c.scores[i] = models.PillarScore{Pillar: p, Value: models.NeutralScore}
			c.degraded[i] = true
		}
		if c.degraded[i] {
			deg = append(deg, p)
		}
	}
	c.state = StateComposed
	return c.scores, deg
}

// ComposerConfig holds the fixed weights and the classification thresholds.
type ComposerConfig struct {
	FixedWeights     models.PillarWeights
	BullishThreshold float64
	BearishThreshold float64
}

// PredictionComposer combines pillar scores into a PredictionRecord.
type PredictionComposer struct {
	cfg       ComposerConfig
	supplier  domsvc.WeightSupplier
	predictor domsvc.MovePredictor
	newID     func() string
	l         *applogger.Logger
}

// ComposerOption configures the PredictionComposer.
type ComposerOption func(*PredictionComposer)

// WithWeightSupplier enables dynamic weights.
func WithWeightSupplier(s domsvc.WeightSupplier) ComposerOption {
	return func(c *PredictionComposer) { c.supplier = s }
}

// WithIDGenerator overrides record ID generation.
func WithIDGenerator(fn func() string) ComposerOption {
	return func(c *PredictionComposer) { c.newID = fn }
}

// NewPredictionComposer fails if the fixed weights are themselves invalid.
func NewPredictionComposer(cfg ComposerConfig, predictor domsvc.MovePredictor, l *applogger.Logger, opts ...ComposerOption) (*PredictionComposer, error) {
	if err := cfg.FixedWeights.Validate(); err != nil {
		return nil, fmt.Errorf("fixed weights: %w", err)
	}
	if cfg.BullishThreshold < cfg.BearishThreshold {
		return nil, fmt.Errorf("bullish threshold %v below bearish threshold %v", cfg.BullishThreshold, cfg.BearishThreshold)
	}
	c := &PredictionComposer{
		cfg:       cfg,
		predictor: predictor,
		newID:     func() string { return uuid.NewString() },
		l:         l,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Weights returns the vector to use for this cycle and where it came from.
// An invalid dynamic suggestion falls back to the fixed weights.
func (c *PredictionComposer) Weights() (models.PillarWeights, models.WeightsSource) {
	if c.supplier == nil {
		return c.cfg.FixedWeights, models.WeightsFixed
	}
	w, ok := c.supplier.SuggestedWeights()
	if !ok {
		return c.cfg.FixedWeights, models.WeightsFixed
	}
	if err := w.Validate(); err != nil {
		c.l.Warn("dynamic weights rejected, using fixed weights", applogger.Error(err))
		return c.cfg.FixedWeights, models.WeightsFixed
	}
	return w, models.WeightsDynamic
}

// Compose finishes comp and emits the record for instant ts.
func (c *PredictionComposer) Compose(ctx context.Context, ts time.Time, comp *Composition) (models.PredictionRecord, error) {
	if comp.State() == StateComposed {
		return models.PredictionRecord{}, ErrAlreadyComposed
	}
	scores, degraded := comp.finish()
	w, src := c.Weights()
	composite := CompositeScore(scores, w)

	fv := models.FeatureVector{
		TechScore:      scores[0].Value,
		SocialScore:    scores[1].Value,
		FundScore:      scores[2].Value,
		AstroScore:     scores[3].Value,
		CompositeScore: composite,
	}
	move := 0.0
	if c.predictor != nil {
		m, err := c.predictor.PredictMove(ctx, fv)
		if err != nil || math.IsNaN(m) || math.IsInf(m, 0) {
			c.l.Warn("move prediction unavailable, assuming no move", applogger.Error(err))
		} else {
			move = m
		}
	}

	return models.PredictionRecord{
		ID:              c.newID(),
		Timestamp:       ts.UTC().Truncate(time.Millisecond),
		PillarScores:    scores,
		CompositeScore:  composite,
		PredictedMove:   move,
		Category:        Classify(move, c.cfg.BullishThreshold, c.cfg.BearishThreshold),
		Weights:         w,
		WeightsSource:   src,
		DegradedPillars: degraded,
	}, nil
}

// CompositeScore is the weighted sum of the pillar scores, kept within [0,100].
func CompositeScore(scores [4]models.PillarScore, w models.PillarWeights) float64 {
	var sum float64
	for _, ps := range scores {
		sum += w.Of(ps.Pillar) * ps.Value
	}
	return math.Max(0, math.Min(100, sum))
}

// Classify maps a predicted percentage move onto a category. Moves exactly
// on a threshold are Neutral.
func Classify(move, bullish, bearish float64) models.Category {
	switch {
	case move > bullish:
		return models.CategoryBullish
	case move < bearish:
		return models.CategoryBearish
	default:
		return models.CategoryNeutral
	}
}
