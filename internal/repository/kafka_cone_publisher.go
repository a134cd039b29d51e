package repository

import (
	"context"

	"Prism/internal/domain/models"
	domrepo "Prism/internal/domain/repository"
	pkgkafka "Prism/pkg/kafka"
)

// Producer is the subset of pkg/kafka.Producer the publisher uses.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaConePublisher writes cones as JSON, keyed by asset:horizon so every
// key stays on one partition.
type KafkaConePublisher struct {
	producer Producer
	topic    string
}

func NewKafkaConePublisher(producer Producer, topic string) *KafkaConePublisher {
	return &KafkaConePublisher{producer: producer, topic: topic}
}

func (p *KafkaConePublisher) Publish(ctx context.Context, cone models.PercentileCone) error {
	return p.producer.Publish(ctx, p.topic, []byte(cone.Key()), cone)
}

func (p *KafkaConePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var (
	_ domrepo.ConePublisher = (*KafkaConePublisher)(nil)
	_ Producer              = (*pkgkafka.Producer)(nil)
)
