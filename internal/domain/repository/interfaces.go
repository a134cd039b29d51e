package repository

import (
	"context"

	"Prism/internal/domain/models"
)

// ConeSource fetches the latest percentile cone for an asset.
type ConeSource interface {
	FetchCone(ctx context.Context, asset string, h models.Horizon) (models.PercentileCone, error)
}

// ConeCatalog is a ConeSource that also knows which assets and horizons it
// serves.
type ConeCatalog interface {
	ConeSource
	Assets() []string
	HorizonsFor(asset string) []string
	Supports(asset string, h models.Horizon) error
}

// ConePublisher fans cones out to downstream consumers.
type ConePublisher interface {
	Publish(ctx context.Context, cone models.PercentileCone) error
	Close() error
}

// ConeStore keeps the history of render parameters.
type ConeStore interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, rec models.ConeRecord) error
	Recent(ctx context.Context, asset string, h models.Horizon, limit int) ([]models.ConeRecord, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordConeProcessed(asset string, h models.Horizon)
	RecordDegenerate(asset string, h models.Horizon)
	RecordLastPrice(asset string, price float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordDropped(reason string)
	SetPipelineBuffered(n int)
	RecordFrames(asset string, n int)
	StreamOpened()
	StreamClosed()
}
