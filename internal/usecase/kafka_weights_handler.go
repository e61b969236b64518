package usecase

import (
	"context"
	"encoding/json"

	"PillarCast/internal/domain/models"
	domrepo "PillarCast/internal/domain/repository"
	"PillarCast/internal/service/weights"
	pkgkafka "PillarCast/pkg/kafka"
	applogger "PillarCast/pkg/logger"
)

// KafkaWeightsHandler feeds suggested weight vectors from Kafka into the supplier.
type KafkaWeightsHandler struct {
	topic    string
	supplier *weights.Supplier
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

func NewKafkaWeightsHandler(topic string, supplier *weights.Supplier, metrics domrepo.Metrics, l *applogger.Logger) *KafkaWeightsHandler {
	return &KafkaWeightsHandler{topic: topic, supplier: supplier, metrics: metrics, l: l}
}

func (h *KafkaWeightsHandler) Topic() string { return h.topic }

// Handle accepts {technical, social, fundamental, astrology, source}. Bad
// payloads and invalid vectors are logged and acknowledged; retrying them
// cannot succeed. The previous suggestion stays in effect.
func (h *KafkaWeightsHandler) Handle(_ context.Context, b []byte) error {
	var m models.SuggestedWeightsMessage
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("weights_unmarshal")
		h.l.Warn("undecodable weights message dropped", applogger.Int("bytes", len(b)), applogger.Error(err))
		return nil
	}
	if err := h.supplier.Offer(m); err != nil {
		h.metrics.RecordError("weights_invalid")
		h.l.Warn("suggested weights rejected", applogger.String("source", m.Source), applogger.Error(err))
		return nil
	}
	h.l.Info("suggested weights accepted", applogger.String("source", m.Source))
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaWeightsHandler)(nil)
