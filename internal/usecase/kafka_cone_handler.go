package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Prism/internal/domain/models"
	domrepo "Prism/internal/domain/repository"
	pkgkafka "Prism/pkg/kafka"
)

// KafkaConeHandler consumes published cones and applies them to the scene
// hub of this process.
type KafkaConeHandler struct {
	topic   string
	updater *SceneUpdater
	metrics domrepo.Metrics
}

func NewKafkaConeHandler(topic string, updater *SceneUpdater, metrics domrepo.Metrics) *KafkaConeHandler {
	return &KafkaConeHandler{topic: topic, updater: updater, metrics: metrics}
}

func (h *KafkaConeHandler) Topic() string { return h.topic }

func (h *KafkaConeHandler) Handle(ctx context.Context, b []byte) error {
	var cone models.PercentileCone
	if err := json.Unmarshal(b, &cone); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode cone: %w", err)
	}
	if !cone.FetchedAt.IsZero() {
		h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(cone.FetchedAt).Seconds())
	}
	if err := h.updater.Apply(ctx, cone); err != nil {
		h.metrics.RecordError("consumer_apply")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaConeHandler)(nil)
