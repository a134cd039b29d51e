package usecase

import (
	"context"
	"fmt"
	"time"

	"Prism/internal/domain/models"
	drepo "Prism/internal/domain/repository"
)

const (
	BackendDirect = "direct"
	BackendKafka  = "kafka"
)

// ConeProcessor routes polled cones to the configured backend: published to
// Kafka, or applied to the scene hub in process.
type ConeProcessor struct {
	pub     drepo.ConePublisher
	updater *SceneUpdater
	metrics drepo.Metrics
	backend string
}

func NewConeProcessor(pub drepo.ConePublisher, updater *SceneUpdater, metrics drepo.Metrics, backend string) *ConeProcessor {
	return &ConeProcessor{pub: pub, updater: updater, metrics: metrics, backend: backend}
}

func (p *ConeProcessor) Process(ctx context.Context, c *models.PercentileCone) error {
	if c == nil {
		return fmt.Errorf("cone is nil")
	}
	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		if p.pub == nil {
			err = fmt.Errorf("kafka backend without publisher")
		} else {
			err = p.pub.Publish(ctx, *c)
		}
	case BackendDirect:
		err = p.updater.Apply(ctx, *c)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process cone %s: %w", c.Key(), err)
	}
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// Close closes the publisher if one is configured.
func (p *ConeProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
