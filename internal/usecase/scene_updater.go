package usecase

import (
	"context"
	"time"

	"Prism/internal/domain/models"
	drepo "Prism/internal/domain/repository"
	applogger "Prism/pkg/logger"
)

// SceneUpdater is the terminal step for a fresh cone: build the scene,
// record its parameters and hand it to live subscribers.
type SceneUpdater struct {
	builder *SceneBuilder
	store   drepo.ConeStore
	hub     *SceneHub
	metrics drepo.Metrics
	l       *applogger.Logger
}

// NewSceneUpdater accepts a nil store when history is disabled.
func NewSceneUpdater(builder *SceneBuilder, store drepo.ConeStore, hub *SceneHub, metrics drepo.Metrics, l *applogger.Logger) *SceneUpdater {
	return &SceneUpdater{builder: builder, store: store, hub: hub, metrics: metrics, l: l}
}

// Apply broadcasts the scene before writing history. A history write failure
// is logged and counted but never holds back live subscribers.
func (u *SceneUpdater) Apply(ctx context.Context, cone models.PercentileCone) error {
	scene := u.builder.Build(cone)

	n := u.hub.Broadcast(scene)
	u.l.Debug("scene updated",
		applogger.String("key", scene.Key()),
		applogger.Bool("empty", scene.Grid.IsEmpty()),
		applogger.Int("subscribers", n),
	)

	if u.store == nil {
		return nil
	}
	start := time.Now()
	if err := u.store.Store(ctx, Record(cone, scene)); err != nil {
		u.metrics.RecordError("store")
		u.l.Warn("render history write failed",
			applogger.String("key", cone.Key()),
			applogger.Error(err),
		)
		return nil
	}
	u.metrics.RecordLatency("store", time.Since(start).Seconds())
	return nil
}
