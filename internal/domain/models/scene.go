package models

import "time"

// Scene bundles a cone with everything derived from it.
type Scene struct {
	Asset   string         `json:"asset"`
	Horizon Horizon        `json:"horizon"`
	Render  ConeRenderData `json:"render"`
	Grid    DensityGrid    `json:"grid"`
	BuiltAt time.Time      `json:"built_at"`
}

func (s Scene) Key() string { return SceneKey(s.Asset, s.Horizon) }

// SceneSnapshot is the JSON payload served to renderers.
type SceneSnapshot struct {
	Asset     string         `json:"asset"`
	Horizon   Horizon        `json:"horizon"`
	Render    ConeRenderData `json:"render"`
	StepsX    int            `json:"steps_x"`
	StepsZ    int            `json:"steps_z"`
	Positions []float32      `json:"positions"`
	UVs       []float32      `json:"uvs"`
	Empty     bool           `json:"empty"`
	BuiltAt   time.Time      `json:"built_at"`
}

// OverlayResult is the mapper output plus its draw list.
type OverlayResult struct {
	Render      ConeRenderData     `json:"render"`
	Coordinates OverlayCoordinates `json:"coordinates"`
	Layers      []OverlayLayer     `json:"layers"`
	Levels      *RiskLevels        `json:"levels,omitempty"`
}

// ConeRecord is one row of render-parameter history.
type ConeRecord struct {
	Asset        string
	Horizon      Horizon
	CurrentPrice float64
	MinPrice     float64
	MaxPrice     float64
	Volatility   float64
	SpreadPct    float64
	Points       int
	Degenerate   bool
	FetchedAt    time.Time
}
