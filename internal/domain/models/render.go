package models

import "math"

// ConeRenderData is the compact parameter set derived from a cone. Values are
// replaced whole on every new cone and never mutated in place.
type ConeRenderData struct {
	MinPrice     float64 `json:"min_price"`
	MaxPrice     float64 `json:"max_price"`
	CurrentPrice float64 `json:"current_price"`
	Volatility   float64 `json:"volatility"`
	SpreadPct    float64 `json:"spread_pct"`
}

func (d ConeRenderData) Range() float64 { return d.MaxPrice - d.MinPrice }

// IsDegenerate reports whether the data cannot drive a surface or overlay.
func (d ConeRenderData) IsDegenerate() bool {
	for _, v := range []float64{d.MinPrice, d.MaxPrice, d.CurrentPrice, d.Volatility, d.SpreadPct} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return true
		}
	}
	return d.Range() <= 0 || d.CurrentPrice <= 0
}

const (
	GridStepsX = 80
	GridStepsZ = 160
)

// DensityGrid is the elevation surface. Positions interleave x, y, z per
// vertex in row-major order: vertex (i, j) sits at index i*StepsZ+j.
type DensityGrid struct {
	StepsX     int       `json:"steps_x"`
	StepsZ     int       `json:"steps_z"`
	Positions  []float64 `json:"positions"`
	Elevations []float64 `json:"elevations"`
}

// EmptyGrid is the "no surface" placeholder.
func EmptyGrid() DensityGrid { return DensityGrid{} }

func (g DensityGrid) IsEmpty() bool {
	return g.StepsX == 0 || g.StepsZ == 0 || len(g.Positions) == 0
}

func (g DensityGrid) VertexCount() int { return g.StepsX * g.StepsZ }

// SameShape reports whether two grids can be interpolated vertex by vertex.
func (g DensityGrid) SameShape(o DensityGrid) bool {
	return g.StepsX == o.StepsX && g.StepsZ == o.StepsZ && len(g.Positions) == len(o.Positions)
}

// Clone returns a deep copy.
func (g DensityGrid) Clone() DensityGrid {
	out := DensityGrid{StepsX: g.StepsX, StepsZ: g.StepsZ}
	if g.Positions != nil {
		out.Positions = append([]float64(nil), g.Positions...)
	}
	if g.Elevations != nil {
		out.Elevations = append([]float64(nil), g.Elevations...)
	}
	return out
}
