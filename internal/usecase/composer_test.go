package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"PillarCast/internal/domain/models"
	applogger "PillarCast/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultComposerConfig() ComposerConfig {
	return ComposerConfig{FixedWeights: models.DefaultPillarWeights(), BullishThreshold: 2, BearishThreshold: -2}
}

func newComposer(t *testing.T, p *fixedPredictor, opts ...ComposerOption) *PredictionComposer {
	t.Helper()
	opts = append(opts, WithIDGenerator(func() string { return "rec-1" }))
	c, err := NewPredictionComposer(defaultComposerConfig(), p, applogger.Nop(), opts...)
	require.NoError(t, err)
	return c
}

func allPillars(v float64) *Composition {
	comp := NewComposition()
	for _, p := range models.Pillars {
		_ = comp.SetPillar(models.PillarScore{Pillar: p, Value: v}, false)
	}
	return comp
}

func TestAllNeutralPillarsWithZeroMoveIsNeutral(t *testing.T) {
	p := &fixedPredictor{move: 0}
	c := newComposer(t, p)

	rec, err := c.Compose(context.Background(), time.Unix(100, 0), allPillars(50))
	require.NoError(t, err)
	assert.InDelta(t, 50.0, rec.CompositeScore, 1e-9)
	assert.Equal(t, models.CategoryNeutral, rec.Category)
	assert.Equal(t, models.WeightsFixed, rec.WeightsSource)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Empty(t, rec.DegradedPillars)
	assert.Equal(t, 50.0, p.seen.TechScore)
	assert.Equal(t, 50.0, p.seen.CompositeScore)
}

func TestCompositeUsesFixedWeights(t *testing.T) {
	comp := NewComposition()
	require.NoError(t, comp.SetPillar(models.PillarScore{Pillar: models.PillarTechnical, Value: 100}, false))
	require.NoError(t, comp.SetPillar(models.PillarScore{Pillar: models.PillarSocial, Value: 0}, false))
	require.NoError(t, comp.SetPillar(models.PillarScore{Pillar: models.PillarFundamental, Value: 50}, false))
	require.NoError(t, comp.SetPillar(models.PillarScore{Pillar: models.PillarAstrology, Value: 20}, false))

	rec, err := newComposer(t, &fixedPredictor{}).Compose(context.Background(), time.Now(), comp)
	require.NoError(t, err)
	// 0.40*100 + 0.25*0 + 0.20*50 + 0.15*20
	assert.InDelta(t, 53.0, rec.CompositeScore, 1e-9)
}

func TestClassifyThresholds(t *testing.T) {
	assert.Equal(t, models.CategoryBullish, Classify(2.01, 2, -2))
	assert.Equal(t, models.CategoryNeutral, Classify(2, 2, -2))
	assert.Equal(t, models.CategoryNeutral, Classify(-2, 2, -2))
	assert.Equal(t, models.CategoryBearish, Classify(-2.5, 2, -2))
	assert.Equal(t, models.CategoryBullish, Classify(0.6, 0.5, -0.5))
}

func TestPredictorFailureMeansNoMove(t *testing.T) {
	c := newComposer(t, &fixedPredictor{move: 9, err: errors.New("model down")})
	rec, err := c.Compose(context.Background(), time.Now(), allPillars(90))
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.PredictedMove)
	assert.Equal(t, models.CategoryNeutral, rec.Category)
}

func TestDynamicWeightsAppliedWhenValid(t *testing.T) {
	w := models.PillarWeights{Technical: 1}
	c := newComposer(t, &fixedPredictor{move: 3}, WithWeightSupplier(staticSupplier{w: w, ok: true}))

	comp := NewComposition()
	_ = comp.SetPillar(models.PillarScore{Pillar: models.PillarTechnical, Value: 80}, false)
	_ = comp.SetPillar(models.PillarScore{Pillar: models.PillarSocial, Value: 10}, false)
	_ = comp.SetPillar(models.PillarScore{Pillar: models.PillarFundamental, Value: 10}, false)
	_ = comp.SetPillar(models.PillarScore{Pillar: models.PillarAstrology, Value: 10}, false)

	rec, err := c.Compose(context.Background(), time.Now(), comp)
	require.NoError(t, err)
	assert.Equal(t, models.WeightsDynamic, rec.WeightsSource)
	assert.InDelta(t, 80.0, rec.CompositeScore, 1e-9)
	assert.Equal(t, models.CategoryBullish, rec.Category)
}

func TestInvalidDynamicWeightsFallBackToFixed(t *testing.T) {
	bad := models.PillarWeights{Technical: 0.7, Social: 0.7}
	c := newComposer(t, &fixedPredictor{}, WithWeightSupplier(staticSupplier{w: bad, ok: true}))
	w, src := c.Weights()
	assert.Equal(t, models.WeightsFixed, src)
	assert.Equal(t, models.DefaultPillarWeights(), w)

	negative := models.PillarWeights{Technical: 1.2, Social: -0.2}
	c = newComposer(t, &fixedPredictor{}, WithWeightSupplier(staticSupplier{w: negative, ok: true}))
	_, src = c.Weights()
	assert.Equal(t, models.WeightsFixed, src)

	c = newComposer(t, &fixedPredictor{}, WithWeightSupplier(staticSupplier{ok: false}))
	_, src = c.Weights()
	assert.Equal(t, models.WeightsFixed, src)
}

func TestMissingPillarIsNeutralAndDegraded(t *testing.T) {
	comp := NewComposition()
	_ = comp.SetPillar(models.PillarScore{Pillar: models.PillarTechnical, Value: 60}, false)
	_ = comp.SetPillar(models.PillarScore{Pillar: models.PillarSocial, Value: 60}, true)

	rec, err := newComposer(t, &fixedPredictor{}).Compose(context.Background(), time.Now(), comp)
	require.NoError(t, err)
	assert.Equal(t, []models.Pillar{models.PillarSocial, models.PillarFundamental, models.PillarAstrology}, rec.DegradedPillars)
	assert.Equal(t, 50.0, rec.Score(models.PillarAstrology))
}

func TestCompositionIsSingleUse(t *testing.T) {
	c := newComposer(t, &fixedPredictor{})
	comp := allPillars(50)
	assert.Equal(t, StateComputing, comp.State())

	_, err := c.Compose(context.Background(), time.Now(), comp)
	require.NoError(t, err)
	assert.Equal(t, StateComposed, comp.State())

	_, err = c.Compose(context.Background(), time.Now(), comp)
	assert.ErrorIs(t, err, ErrAlreadyComposed)
	assert.ErrorIs(t, comp.SetPillar(models.PillarScore{Pillar: models.PillarSocial}, false), ErrAlreadyComposed)
}

func TestComposerRejectsBadFixedConfig(t *testing.T) {
	cfg := defaultComposerConfig()
	cfg.FixedWeights.Technical = 0.9
	_, err := NewPredictionComposer(cfg, nil, applogger.Nop())
	assert.ErrorIs(t, err, models.ErrInvalidWeights)

	cfg = defaultComposerConfig()
	cfg.BullishThreshold = -3
	_, err = NewPredictionComposer(cfg, nil, applogger.Nop())
	assert.Error(t, err)
}
