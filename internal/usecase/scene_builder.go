package usecase

import (
	"time"

	"Prism/internal/domain/models"
	drepo "Prism/internal/domain/repository"
	"Prism/internal/services/density"
	"Prism/internal/services/overlay"
)

// SceneBuilder turns cones into scenes and overlay requests into draw lists.
// It keeps no state between calls and is safe for concurrent use.
type SceneBuilder struct {
	gen     *density.Generator
	metrics drepo.Metrics
	now     func() time.Time
}

func NewSceneBuilder(gen *density.Generator, metrics drepo.Metrics) *SceneBuilder {
	if gen == nil {
		gen = density.NewGenerator()
	}
	return &SceneBuilder{gen: gen, metrics: metrics, now: time.Now}
}

// Build extracts render parameters and evaluates the surface. Degenerate
// cones yield an empty grid, never an error.
func (b *SceneBuilder) Build(cone models.PercentileCone) models.Scene {
	start := time.Now()
	render := density.Extract(cone, cone.CurrentPrice)
	grid := b.gen.Generate(render, cone.Horizon.Days())

	if b.metrics != nil {
		b.metrics.RecordConeProcessed(cone.Asset, cone.Horizon)
		if grid.IsEmpty() {
			b.metrics.RecordDegenerate(cone.Asset, cone.Horizon)
		}
		b.metrics.RecordLastPrice(cone.Asset, render.CurrentPrice)
		b.metrics.RecordLatency("scene_build", time.Since(start).Seconds())
	}

	return models.Scene{
		Asset:   cone.Asset,
		Horizon: cone.Horizon,
		Render:  render,
		Grid:    grid,
		BuiltAt: b.now(),
	}
}

// Overlay maps the requested prices against the scene bounds.
func (b *SceneBuilder) Overlay(render models.ConeRenderData, in models.OverlayInput) models.OverlayResult {
	coords := overlay.Map(render, in)
	return models.OverlayResult{
		Render:      render,
		Coordinates: coords,
		Layers:      overlay.Layers(coords),
	}
}

// Record summarises a scene for the history store.
func Record(cone models.PercentileCone, scene models.Scene) models.ConeRecord {
	fetched := cone.FetchedAt
	if fetched.IsZero() {
		fetched = scene.BuiltAt
	}
	return models.ConeRecord{
		Asset:        scene.Asset,
		Horizon:      scene.Horizon,
		CurrentPrice: scene.Render.CurrentPrice,
		MinPrice:     scene.Render.MinPrice,
		MaxPrice:     scene.Render.MaxPrice,
		Volatility:   scene.Render.Volatility,
		SpreadPct:    scene.Render.SpreadPct,
		Points:       len(cone.Points),
		Degenerate:   scene.Grid.IsEmpty(),
		FetchedAt:    fetched,
	}
}
