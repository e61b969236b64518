package repository

import (
	"context"

	"PillarCast/internal/domain/models"
	"PillarCast/internal/domain/repository"
	pkgkafka "PillarCast/pkg/kafka"
)

// KafkaPublisher forwards persisted records to the predictions topic.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishPrediction keys messages by record ID; consumers order by the record timestamp.
func (p *KafkaPublisher) PublishPrediction(ctx context.Context, rec models.PredictionRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.ID), rec)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ repository.Publisher = (*KafkaPublisher)(nil)
