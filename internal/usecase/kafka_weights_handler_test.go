package usecase

import (
	"context"
	"testing"

	"PillarCast/internal/service/weights"
	applogger "PillarCast/pkg/logger"
	"PillarCast/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsHandlerAcceptsValidVector(t *testing.T) {
	s := weights.NewSupplier(0)
	h := NewKafkaWeightsHandler("weights", s, metrics.Nop{}, applogger.Nop())
	assert.Equal(t, "weights", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"technical":0.5,"social":0.2,"fundamental":0.2,"astrology":0.1,"source":"tuner"}`)))
	w, ok := s.SuggestedWeights()
	require.True(t, ok)
	assert.Equal(t, 0.1, w.Astrology)
}

func TestWeightsHandlerKeepsPreviousOnInvalidVector(t *testing.T) {
	s := weights.NewSupplier(0)
	h := NewKafkaWeightsHandler("weights", s, metrics.Nop{}, applogger.Nop())
	require.NoError(t, h.Handle(context.Background(), []byte(`{"technical":0.4,"social":0.25,"fundamental":0.2,"astrology":0.15}`)))

	require.NoError(t, h.Handle(context.Background(), []byte(`{"technical":0.9,"social":0.9,"fundamental":0,"astrology":0}`)))
	w, ok := s.SuggestedWeights()
	require.True(t, ok)
	assert.Equal(t, 0.4, w.Technical)
}

func TestWeightsHandlerAcknowledgesUndecodablePayload(t *testing.T) {
	s := weights.NewSupplier(0)
	h := NewKafkaWeightsHandler("weights", s, metrics.Nop{}, applogger.Nop())
	require.NoError(t, h.Handle(context.Background(), []byte(`{"technical":0.4,"social":0.25,"fundamental":0.2,"astrology":0.15}`)))

	assert.NoError(t, h.Handle(context.Background(), []byte(`not json`)))
	w, ok := s.SuggestedWeights()
	require.True(t, ok)
	assert.Equal(t, 0.4, w.Technical)
}
