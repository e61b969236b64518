package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"PillarCast/internal/domain/models"
	"PillarCast/internal/service/broadcast"
	applogger "PillarCast/pkg/logger"
	"PillarCast/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	got []models.PredictionRecord
	err error
}

func (p *recordingPublisher) PublishPrediction(_ context.Context, rec models.PredictionRecord) error {
	p.got = append(p.got, rec)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestSinkKeepsTimestampsIncreasing(t *testing.T) {
	store := &memPredictionStore{}
	sink := NewPredictionSink(store, nil, metrics.Nop{}, applogger.Nop())
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	a, err := sink.Persist(context.Background(), models.PredictionRecord{ID: "a", Timestamp: ts})
	require.NoError(t, err)
	b, err := sink.Persist(context.Background(), models.PredictionRecord{ID: "b", Timestamp: ts})
	require.NoError(t, err)
	c, err := sink.Persist(context.Background(), models.PredictionRecord{ID: "c", Timestamp: ts.Add(-time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, ts, a.Timestamp)
	assert.Equal(t, ts.Add(time.Millisecond), b.Timestamp)
	assert.Equal(t, ts.Add(2*time.Millisecond), c.Timestamp)
	require.Len(t, store.records, 3)
}

func TestSinkPrimeContinuesAfterStoredRecords(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &memPredictionStore{records: []models.PredictionRecord{{ID: "old", Timestamp: ts}}}
	sink := NewPredictionSink(store, nil, metrics.Nop{}, applogger.Nop())
	require.NoError(t, sink.Prime(context.Background()))

	rec, err := sink.Persist(context.Background(), models.PredictionRecord{ID: "new", Timestamp: ts.Add(-time.Minute)})
	require.NoError(t, err)
	assert.True(t, rec.Timestamp.After(ts))
}

func TestSinkBroadcastsAfterPersist(t *testing.T) {
	hub := broadcast.NewHub(2, applogger.Nop())
	sub, cancel := hub.Subscribe()
	defer cancel()
	pub := &recordingPublisher{err: errors.New("broker down")}
	sink := NewPredictionSink(&memPredictionStore{}, hub, metrics.Nop{}, applogger.Nop(), pub)

	rec, err := sink.Persist(context.Background(), models.PredictionRecord{ID: "x", Timestamp: time.Now()})
	require.NoError(t, err, "publisher failures do not fail persistence")
	assert.Equal(t, rec.ID, (<-sub).ID)
	require.Len(t, pub.got, 1)
}

func TestSinkDoesNotBroadcastFailedWrites(t *testing.T) {
	hub := broadcast.NewHub(2, applogger.Nop())
	sub, cancel := hub.Subscribe()
	defer cancel()
	sink := NewPredictionSink(&memPredictionStore{failing: true}, hub, metrics.Nop{}, applogger.Nop())

	_, err := sink.Persist(context.Background(), models.PredictionRecord{ID: "x", Timestamp: time.Now()})
	require.Error(t, err)
	select {
	case <-sub:
		t.Fatal("failed write was broadcast")
	default:
	}
}
