package repository

import (
	"context"
	"testing"
	"time"

	"PillarCast/internal/domain/models"
	applogger "PillarCast/pkg/logger"
	pkgsqlite "PillarCast/pkg/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) *pkgsqlite.Client {
	t.Helper()
	c, err := pkgsqlite.NewClient(pkgsqlite.WithPath(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func record(id string, ts time.Time, composite float64) models.PredictionRecord {
	rec := models.PredictionRecord{
		ID:             id,
		Timestamp:      ts,
		CompositeScore: composite,
		PredictedMove:  (composite - 50) / 10,
		Category:       models.CategoryNeutral,
		Weights:        models.DefaultPillarWeights(),
		WeightsSource:  models.WeightsFixed,
	}
	for i, p := range models.Pillars {
		rec.PillarScores[i] = models.PillarScore{Pillar: p, Value: composite}
	}
	return rec
}

func TestSQLitePredictionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSQLitePredictionStore(newSQLite(t), applogger.Nop())
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.Init(ctx), "init is idempotent")

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	base := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		rec := record("", base.Add(time.Duration(i)*time.Hour), 40+float64(i))
		rec.DegradedPillars = []models.Pillar{models.PillarSocial}
		id, err := store.Persist(ctx, rec)
		require.NoError(t, err)
		assert.NotEmpty(t, id, "missing IDs are generated")
	}

	latest, err = store.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 42.0, latest.CompositeScore)
	assert.True(t, latest.Timestamp.Equal(base.Add(2*time.Hour)))
	assert.Equal(t, []models.Pillar{models.PillarSocial}, latest.DegradedPillars)
	assert.Equal(t, models.PillarAstrology, latest.PillarScores[3].Pillar)

	recs, err := store.Range(ctx, base, base.Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 40.0, recs[0].CompositeScore)

	recs, err = store.Range(ctx, base, base.Add(10*time.Hour), 1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestSQLitePredictionStoreIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	store := NewSQLitePredictionStore(newSQLite(t), applogger.Nop())
	require.NoError(t, store.Init(ctx))

	ts := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.Persist(ctx, record("a", ts, 40))
	require.NoError(t, err)
	_, err = store.Persist(ctx, record("b", ts, 60))
	assert.Error(t, err, "an existing timestamp key is never overwritten")

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", latest.ID)
}

func TestSQLiteSampleStore(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteSampleStore(newSQLite(t))
	require.NoError(t, store.Init(ctx))

	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendSamples(ctx, []models.MetricSample{
		{MetricName: "rsi", RawValue: 30, Timestamp: now.Add(-48 * time.Hour)},
		{MetricName: "rsi", RawValue: 55, Timestamp: now.Add(-time.Hour)},
		{MetricName: "rsi", RawValue: 65, Timestamp: now},
		{MetricName: "macd", RawValue: -1, Timestamp: now},
	}))
	require.NoError(t, store.AppendSamples(ctx, nil))

	vals, err := store.Values(ctx, "rsi", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []float64{55, 65}, vals)

	vals, err = store.Values(ctx, "unknown", now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, vals)
}
