package usecase

import (
	"context"
	"fmt"
	"time"

	"Prism/internal/domain/models"
	drepo "Prism/internal/domain/repository"
	domsvc "Prism/internal/domain/service"
	"Prism/internal/service/synth"
	"Prism/internal/services/mesh"
	applogger "Prism/pkg/logger"
)

// AssetInfo is one entry of the asset listing.
type AssetInfo struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	CurrentPrice *float64 `json:"current_price"`
	Horizons     []string `json:"horizons"`
}

// SceneService answers the request/response side of the API: snapshots,
// overlays and the asset listing.
type SceneService struct {
	source     drepo.ConeCatalog
	builder    *SceneBuilder
	risk       domsvc.RiskLevels
	conePoints int
	l          *applogger.Logger
}

func NewSceneService(source drepo.ConeCatalog, builder *SceneBuilder, risk domsvc.RiskLevels, conePoints int, l *applogger.Logger) *SceneService {
	return &SceneService{source: source, builder: builder, risk: risk, conePoints: conePoints, l: l}
}

// Supports reports whether asset/horizon can be served.
func (s *SceneService) Supports(asset string, h models.Horizon) error {
	return s.source.Supports(asset, h)
}

// Cone fetches the cone and reduces it to the served number of points.
func (s *SceneService) Cone(ctx context.Context, asset string, h models.Horizon) (models.PercentileCone, error) {
	cone, err := s.source.FetchCone(ctx, asset, h)
	if err != nil {
		return models.PercentileCone{}, err
	}
	return synth.SampleCone(cone, s.conePoints), nil
}

func (s *SceneService) Scene(ctx context.Context, asset string, h models.Horizon) (models.Scene, error) {
	cone, err := s.Cone(ctx, asset, h)
	if err != nil {
		return models.Scene{}, err
	}
	return s.builder.Build(cone), nil
}

// Snapshot returns the static surface for one asset/horizon.
func (s *SceneService) Snapshot(ctx context.Context, asset string, h models.Horizon) (models.SceneSnapshot, error) {
	scene, err := s.Scene(ctx, asset, h)
	if err != nil {
		return models.SceneSnapshot{}, err
	}
	snap := models.SceneSnapshot{
		Asset:   scene.Asset,
		Horizon: scene.Horizon,
		Render:  scene.Render,
		StepsX:  scene.Grid.StepsX,
		StepsZ:  scene.Grid.StepsZ,
		Empty:   scene.Grid.IsEmpty(),
		BuiltAt: scene.BuiltAt,
	}
	if !snap.Empty {
		snap.Positions = toFloat32(nil, scene.Grid.Positions)
		if topo := mesh.For(scene.Grid.StepsX, scene.Grid.StepsZ); topo != nil {
			snap.UVs = topo.UVs
		}
	}
	return snap, nil
}

// Overlay maps a target price and/or highlight range onto the current scene.
func (s *SceneService) Overlay(ctx context.Context, req models.OverlayRequest) (models.OverlayResult, error) {
	h, err := models.ParseHorizon(req.Horizon)
	if err != nil {
		return models.OverlayResult{}, err
	}
	scene, err := s.Scene(ctx, req.Asset, h)
	if err != nil {
		return models.OverlayResult{}, err
	}
	return s.builder.Overlay(scene.Render, req.Input()), nil
}

// RiskOverlay asks the risk service for the position's price lines and maps
// them onto the scene.
func (s *SceneService) RiskOverlay(ctx context.Context, pos models.PositionRequest) (models.OverlayResult, error) {
	if err := s.source.Supports(pos.Asset, pos.Horizon); err != nil {
		return models.OverlayResult{}, err
	}
	levels, err := s.risk.Levels(ctx, pos)
	if err != nil {
		return models.OverlayResult{}, fmt.Errorf("%w: %v", ErrRiskUnavailable, err)
	}
	scene, err := s.Scene(ctx, pos.Asset, pos.Horizon)
	if err != nil {
		return models.OverlayResult{}, err
	}
	res := s.builder.Overlay(scene.Render, levels.Apply(models.OverlayInput{}))
	res.Levels = &levels
	return res, nil
}

// Assets lists every configured asset with its current price from the 24h
// cone. A failed lookup leaves the price empty.
func (s *SceneService) Assets(ctx context.Context) []AssetInfo {
	out := make([]AssetInfo, 0, len(s.source.Assets()))
	for _, sym := range s.source.Assets() {
		info := AssetInfo{
			Symbol:   sym,
			Name:     synth.AssetName(sym),
			Horizons: s.source.HorizonsFor(sym),
		}
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		cone, err := s.source.FetchCone(cctx, sym, models.Horizon24h)
		cancel()
		if err != nil {
			s.l.Warn("asset price lookup failed", applogger.String("asset", sym), applogger.Error(err))
		} else {
			p := cone.CurrentPrice
			info.CurrentPrice = &p
		}
		out = append(out, info)
	}
	return out
}
