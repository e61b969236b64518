package scoring

import (
	"math/rand"
	"testing"

	"PillarCast/internal/domain/models"
	"PillarCast/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubPillarExampleScore(t *testing.T) {
	def := SubPillarDef{Name: "momentum", Weight: 1, Metrics: map[string]float64{"rsi": 0.7, "macd": 0.3}}
	got, missing := ScoreSubPillar(def, map[string]float64{"rsi": 70, "macd": 75})
	assert.Empty(t, missing)
	assert.InDelta(t, 71.5, got.Value, 1e-9)
	assert.Equal(t, "momentum", got.Name)
}

func TestSubPillarMissingMetricIsNeutral(t *testing.T) {
	def := SubPillarDef{Name: "s", Weight: 1, Metrics: map[string]float64{"a": 0.5, "b": 0.5}}
	got, missing := ScoreSubPillar(def, map[string]float64{"a": 100})
	assert.Equal(t, []string{"b"}, missing)
	assert.InDelta(t, 75.0, got.Value, 1e-9)
}

func TestSubPillarStaysBoundedForValidWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		n := 2 + rng.Intn(3)
		raw := make([]float64, n)
		total := 0.0
		for j := range raw {
			raw[j] = rng.Float64()
			total += raw[j]
		}
		def := SubPillarDef{Name: "r", Weight: 1, Metrics: map[string]float64{}}
		inputs := map[string]float64{}
		for j := range raw {
			name := string(rune('a' + j))
			def.Metrics[name] = raw[j] / total
			inputs[name] = rng.Float64() * 100
		}
		got, _ := ScoreSubPillar(def, inputs)
		assert.GreaterOrEqual(t, got.Value, 0.0)
		assert.LessOrEqual(t, got.Value, 100.0)
	}
}

func TestDefaultDefinitionsAreValid(t *testing.T) {
	s, err := NewScorer(DefaultDefinitions())
	require.NoError(t, err)
	assert.Contains(t, s.RequiredMetrics(), "rsi")
	assert.Contains(t, s.RequiredMetrics(), "astro_node")
	p, ok := s.PillarOf("fear_greed")
	require.True(t, ok)
	assert.Equal(t, models.PillarSocial, p)
}

func TestScorerAllNeutralWhenNothingIngested(t *testing.T) {
	s, err := NewScorer(DefaultDefinitions())
	require.NoError(t, err)

	res := s.Score(map[string]float64{})
	for i, ps := range res.Pillars {
		assert.Equal(t, models.Pillars[i], ps.Pillar)
		assert.InDelta(t, 50.0, ps.Value, 1e-9)
	}
	assert.Len(t, res.Degraded, 4)
}

func TestScorerMarksOnlyAffectedPillarDegraded(t *testing.T) {
	s, err := NewScorer(DefaultDefinitions())
	require.NoError(t, err)

	normalized := map[string]float64{}
	for _, m := range s.RequiredMetrics() {
		if p, _ := s.PillarOf(m); p != models.PillarSocial {
			normalized[m] = 80
		}
	}
	res := s.Score(normalized)
	assert.Equal(t, []models.Pillar{models.PillarSocial}, res.Degraded)
	assert.InDelta(t, 80.0, res.Pillars[0].Value, 1e-9)
	assert.InDelta(t, 50.0, res.Pillars[1].Value, 1e-9)
}

func TestAstrologyPillarUsesFixedBlend(t *testing.T) {
	s, err := NewScorer(DefaultDefinitions())
	require.NoError(t, err)
	res := s.Score(map[string]float64{
		"astro_aspect": 100, "astro_ingress": 0, "astro_midpoint": 0, "astro_station": 0, "astro_node": 0,
	})
	assert.InDelta(t, 35.0, res.Pillars[3].Value, 1e-9)
}

func TestInvalidWeightsRejected(t *testing.T) {
	_, err := NewScorer([]PillarDef{{Pillar: models.PillarTechnical, SubPillars: []SubPillarDef{
		{Name: "x", Weight: 1, Metrics: map[string]float64{"a": 0.6, "b": 0.6}},
	}}})
	assert.ErrorIs(t, err, models.ErrInvalidWeights)

	_, err = NewScorer([]PillarDef{{Pillar: models.PillarTechnical, SubPillars: []SubPillarDef{
		{Name: "x", Weight: 1, Metrics: map[string]float64{"a": 1.2, "b": -0.2}},
	}}})
	assert.ErrorIs(t, err, models.ErrInvalidWeights)
}

func TestFromConfigOverridesSinglePillar(t *testing.T) {
	defs, err := FromConfig(map[string]config.PillarConfig{
		"Technical": {SubPillars: []config.SubPillarConfig{
			{Name: "only", Weight: 1, Metrics: map[string]float64{"rsi": 0.7, "macd": 0.3}},
		}},
	})
	require.NoError(t, err)
	s, err := NewScorer(defs)
	require.NoError(t, err)

	res := s.Score(map[string]float64{"rsi": 70, "macd": 75})
	assert.InDelta(t, 71.5, res.Pillars[0].Value, 1e-9)

	_, err = FromConfig(map[string]config.PillarConfig{"lunar": {}})
	assert.Error(t, err)
}
