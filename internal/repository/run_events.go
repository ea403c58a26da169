package repository

import (
	"context"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/repository"
	pkgkafka "PriceCast/pkg/kafka"
)

// EventProducer is the part of the Kafka producer the publisher uses.
type EventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaRunPublisher publishes run summaries keyed by symbol.
type KafkaRunPublisher struct {
	producer EventProducer
	topic    string
}

// NewKafkaRunPublisher creates a Kafka run publisher.
func NewKafkaRunPublisher(producer EventProducer, topic string) repository.RunPublisher {
	return &KafkaRunPublisher{producer: producer, topic: topic}
}

func (p *KafkaRunPublisher) PublishRun(ctx context.Context, ev models.RunEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

func (p *KafkaRunPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ EventProducer = (*pkgkafka.Producer)(nil)

// NoopRunPublisher drops events. Used when events are disabled.
type NoopRunPublisher struct{}

func (NoopRunPublisher) PublishRun(context.Context, models.RunEvent) error { return nil }
func (NoopRunPublisher) Close() error                                      { return nil }
