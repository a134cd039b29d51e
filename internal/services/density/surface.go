package density

import (
	"math"

	"Prism/internal/domain/models"
)

// Tuned shaping constants of the surface.
const (
	ReferenceFraction = 0.15
	RatioCeiling      = 2.5
	ContrastExponent  = 0.7
	ElevationScale    = 3.0
	NowRidgeBand      = 0.01
	NowRidgeFactor    = 2.0

	TimeAxisWidth   = 16.0
	PriceAxisWidth  = 10.0
	ReferenceSpread = 0.15
	MinSpreadScale  = 0.08
	MaxSpreadScale  = 1.0
	DaysPerYear     = 365.25
)

// MaxElevation is the largest z any cell can reach.
var MaxElevation = ElevationScale * math.Pow(RatioCeiling, ContrastExponent)

// Generator builds density grids. It holds no state between calls.
type Generator struct {
	stepsX         int
	stepsZ         int
	priceAxisWidth float64
}

type Option func(*Generator)

// WithSteps overrides the grid dimensions (time samples, price samples).
func WithSteps(x, z int) Option {
	return func(g *Generator) {
		if x >= 2 && z >= 2 {
			g.stepsX, g.stepsZ = x, z
		}
	}
}

// WithPriceAxisWidth overrides the full width of the price axis.
func WithPriceAxisWidth(w float64) Option {
	return func(g *Generator) {
		if w > 0 {
			g.priceAxisWidth = w
		}
	}
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		stepsX:         models.GridStepsX,
		stepsZ:         models.GridStepsZ,
		priceAxisWidth: PriceAxisWidth,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Steps() (int, int) { return g.stepsX, g.stepsZ }

// ReferenceIndex is the time sample used to normalise every density.
func (g *Generator) ReferenceIndex() int {
	idx := int(math.Floor(ReferenceFraction*float64(g.stepsX) + 1e-9))
	if idx < 1 {
		idx = 1
	}
	if idx > g.stepsX-1 {
		idx = g.stepsX - 1
	}
	return idx
}

// SampleTime is the elapsed time in years at time sample i.
func (g *Generator) SampleTime(i int, horizonDays float64) float64 {
	return float64(i) / float64(g.stepsX-1) * horizonDays / DaysPerYear
}

// SamplePrice is the price at price sample j.
func (g *Generator) SamplePrice(j int, data models.ConeRenderData) float64 {
	return data.MinPrice + float64(j)/float64(g.stepsZ-1)*data.Range()
}

// ReferenceDensity is the density at the current price at the reference time.
func (g *Generator) ReferenceDensity(data models.ConeRenderData, horizonDays float64) float64 {
	t := g.SampleTime(g.ReferenceIndex(), horizonDays)
	return LogNormalPDF(data.CurrentPrice, data.CurrentPrice, data.Volatility, t)
}

// SpreadScale narrows the price axis for tight distributions.
func SpreadScale(spreadPct float64) float64 {
	s := spreadPct / ReferenceSpread
	if math.IsNaN(s) {
		return MinSpreadScale
	}
	return math.Min(MaxSpreadScale, math.Max(MinSpreadScale, s))
}

// Elevation shapes a raw density ratio into the z coordinate.
func Elevation(ratio float64) float64 {
	if !(ratio > 0) {
		return 0
	}
	return ElevationScale * math.Pow(math.Min(ratio, RatioCeiling), ContrastExponent)
}

// Generate evaluates the log-normal density over the time/price grid.
// Degenerate parameters produce EmptyGrid.
func (g *Generator) Generate(data models.ConeRenderData, horizonDays float64) models.DensityGrid {
	if data.IsDegenerate() || !(horizonDays > 0) || !(data.Volatility > 0) {
		return models.EmptyGrid()
	}
	ref := g.ReferenceDensity(data, horizonDays)
	if !(ref > 0) || math.IsInf(ref, 0) {
		return models.EmptyGrid()
	}

	nx, nz := g.stepsX, g.stepsZ
	grid := models.DensityGrid{
		StepsX:     nx,
		StepsZ:     nz,
		Positions:  make([]float64, nx*nz*3),
		Elevations: make([]float64, nx*nz),
	}

	priceWidth := g.priceAxisWidth * SpreadScale(data.SpreadPct)
	band := NowRidgeBand * data.Range()

	for i := 0; i < nx; i++ {
		x := (float64(i)/float64(nx-1) - 0.5) * TimeAxisWidth
		t := g.SampleTime(i, horizonDays)
		for j := 0; j < nz; j++ {
			price := g.SamplePrice(j, data)

			var raw float64
			if i == 0 {
				if math.Abs(price-data.CurrentPrice) <= band {
					raw = NowRidgeFactor * ref
				}
			} else {
				raw = LogNormalPDF(price, data.CurrentPrice, data.Volatility, t)
			}

			z := Elevation(raw / ref)
			k := i*nz + j
			grid.Elevations[k] = z
			grid.Positions[3*k] = x
			grid.Positions[3*k+1] = (float64(j)/float64(nz-1) - 0.5) * priceWidth
			grid.Positions[3*k+2] = z
		}
	}
	return grid
}
