package density

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Prism/internal/domain/models"
)

func point(sec int64, lo, hi float64) models.ConePoint {
	var p models.Percentiles
	for k := range p {
		p[k] = lo + (hi-lo)*float64(k)/8
	}
	return models.ConePoint{SecondsAhead: sec, Prices: p}
}

func sampleCone(h models.Horizon) models.PercentileCone {
	return models.PercentileCone{
		Asset:        "BTC",
		Horizon:      h,
		CurrentPrice: 100,
		Points: []models.ConePoint{
			point(0, 99.5, 100.5),
			point(h.Seconds()/2, 97, 104),
			point(h.Seconds(), 95, 107),
		},
	}
}

func TestExtractScenario(t *testing.T) {
	data := Extract(sampleCone(models.Horizon24h), 100)

	want := math.Log(107.0/95.0) / (ZSpread * math.Sqrt(1/365.25))
	assert.InDelta(t, want, data.Volatility, 1e-12)
	assert.InDelta(t, 0.447, data.Volatility, 0.01)
	assert.InDelta(t, 0.12, data.SpreadPct, 1e-12)
	assert.InDelta(t, 93.8, data.MinPrice, 1e-9)
	assert.InDelta(t, 108.2, data.MaxPrice, 1e-9)
	assert.False(t, data.IsDegenerate())
}

func TestExtractRoundTrip(t *testing.T) {
	for _, h := range []models.Horizon{models.Horizon1h, models.Horizon24h} {
		for _, spread := range []float64{0.5, 2, 12, 40, 90} {
			cone := models.PercentileCone{Horizon: h, Points: []models.ConePoint{
				point(0, 100, 100.01),
				point(h.Seconds(), 100-spread/2, 100+spread),
			}}
			data := Extract(cone, 100)
			require.Greater(t, data.Volatility, 0.0)

			term := cone.Points[1].Prices
			assert.InDelta(t, math.Log(term.P995()/term.P005()), ForwardLogSpread(data.Volatility, h), 1e-12)
		}
	}
}

func TestExtractBoundsInvariant(t *testing.T) {
	cones := []models.PercentileCone{
		sampleCone(models.Horizon24h),
		sampleCone(models.Horizon1h),
		{Horizon: models.Horizon24h, Points: []models.ConePoint{point(0, 0.5, 30), point(86400, 0.1, 80)}},
	}
	for _, c := range cones {
		data := Extract(c, 10)
		assert.GreaterOrEqual(t, data.MinPrice, 0.0)
		for _, pt := range c.Points {
			assert.LessOrEqual(t, data.MinPrice, pt.Prices.P005())
			assert.LessOrEqual(t, pt.Prices.P005(), pt.Prices.P995())
			assert.LessOrEqual(t, pt.Prices.P995(), data.MaxPrice)
		}
	}
}

func TestExtractDegenerate(t *testing.T) {
	flat := models.PercentileCone{Horizon: models.Horizon24h, Points: []models.ConePoint{
		point(0, 100, 100), point(86400, 100, 100),
	}}

	cases := map[string]struct {
		cone  models.PercentileCone
		price float64
	}{
		"empty":        {models.PercentileCone{Horizon: models.Horizon24h}, 100},
		"single point": {models.PercentileCone{Horizon: models.Horizon24h, Points: []models.ConePoint{point(0, 90, 110)}}, 100},
		"zero width":   {flat, 100},
		"zero price":   {sampleCone(models.Horizon24h), 0},
		"nan price":    {sampleCone(models.Horizon24h), math.NaN()},
		"unknown tag":  {models.PercentileCone{Horizon: "7d", Points: sampleCone(models.Horizon24h).Points}, 100},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			data := Extract(tc.cone, tc.price)
			for _, v := range []float64{data.MinPrice, data.MaxPrice, data.CurrentPrice, data.Volatility, data.SpreadPct} {
				assert.False(t, math.IsNaN(v) || math.IsInf(v, 0))
			}
			assert.True(t, data.IsDegenerate() || data.Volatility == 0)
			assert.True(t, NewGenerator().Generate(data, 1).IsEmpty())
		})
	}
}

func TestLogNormalPDF(t *testing.T) {
	assert.Zero(t, LogNormalPDF(0, 100, 0.5, 0.01))
	assert.Zero(t, LogNormalPDF(-3, 100, 0.5, 0.01))
	assert.Zero(t, LogNormalPDF(100, 100, 0.5, 0))

	v, tt, s := 0.6, 0.02, 100.0
	sigma := v * math.Sqrt(tt)
	mu := math.Log(s) - 0.5*v*v*tt
	x := 103.0
	want := math.Exp(-math.Pow(math.Log(x)-mu, 2)/(2*sigma*sigma)) / (x * sigma * math.Sqrt(2*math.Pi))
	assert.InDelta(t, want, LogNormalPDF(x, s, v, tt), 1e-12)
}

func TestGenerateDeterministic(t *testing.T) {
	data := Extract(sampleCone(models.Horizon24h), 100)
	g := NewGenerator()

	a := g.Generate(data, 1)
	b := g.Generate(data, 1)
	require.False(t, a.IsEmpty())
	assert.Equal(t, models.GridStepsX, a.StepsX)
	assert.Equal(t, models.GridStepsZ, a.StepsZ)
	assert.Len(t, a.Positions, 3*models.GridStepsX*models.GridStepsZ)
	assert.Equal(t, a, b)
}

func TestGenerateElevationBounds(t *testing.T) {
	g := NewGenerator()
	for _, h := range []models.Horizon{models.Horizon1h, models.Horizon24h} {
		for _, hi := range []float64{100.2, 101, 107, 150, 400} {
			cone := models.PercentileCone{Horizon: h, Points: []models.ConePoint{
				point(0, 99.9, 100.1), point(h.Seconds(), 100*100/hi, hi),
			}}
			grid := g.Generate(Extract(cone, 100), h.Days())
			require.False(t, grid.IsEmpty())
			for k, z := range grid.Elevations {
				require.GreaterOrEqual(t, z, 0.0)
				require.LessOrEqual(t, z, MaxElevation)
				require.Equal(t, z, grid.Positions[3*k+2])
			}
		}
	}
}

func TestReferenceRatioIsOne(t *testing.T) {
	g := NewGenerator()
	data := Extract(sampleCone(models.Horizon24h), 100)

	require.Equal(t, 12, g.ReferenceIndex())
	ref := g.ReferenceDensity(data, 1)
	tRef := g.SampleTime(g.ReferenceIndex(), 1)
	assert.Equal(t, 1.0, LogNormalPDF(data.CurrentPrice, data.CurrentPrice, data.Volatility, tRef)/ref)
	assert.Equal(t, ElevationScale, Elevation(1))
}

func TestGenerateNowRidge(t *testing.T) {
	g := NewGenerator()
	data := Extract(sampleCone(models.Horizon24h), 100)
	grid := g.Generate(data, 1)

	spike := Elevation(NowRidgeFactor)
	for j := 0; j < grid.StepsZ; j++ {
		price := g.SamplePrice(j, data)
		if math.Abs(price-data.CurrentPrice) <= NowRidgeBand*data.Range() {
			assert.Equal(t, spike, grid.Elevations[j])
		} else {
			assert.Zero(t, grid.Elevations[j])
		}
	}
}

func TestGenerateSpatialLayout(t *testing.T) {
	g := NewGenerator()
	data := Extract(sampleCone(models.Horizon24h), 100)
	grid := g.Generate(data, 1)

	last := grid.VertexCount() - 1
	assert.Equal(t, -TimeAxisWidth/2, grid.Positions[0])
	assert.InDelta(t, TimeAxisWidth/2, grid.Positions[3*last], 1e-12)

	width := PriceAxisWidth * SpreadScale(data.SpreadPct)
	assert.InDelta(t, -width/2, grid.Positions[1], 1e-12)
	assert.InDelta(t, width/2, grid.Positions[3*(grid.StepsZ-1)+1], 1e-12)
}

func TestSpreadScale(t *testing.T) {
	assert.Equal(t, MinSpreadScale, SpreadScale(0))
	assert.Equal(t, MinSpreadScale, SpreadScale(0.001))
	assert.InDelta(t, 0.5, SpreadScale(0.075), 1e-12)
	assert.Equal(t, 1.0, SpreadScale(0.3))
}

func TestGenerateRejectsBadHorizon(t *testing.T) {
	data := Extract(sampleCone(models.Horizon24h), 100)
	assert.True(t, NewGenerator().Generate(data, 0).IsEmpty())
	assert.True(t, NewGenerator().Generate(data, -1).IsEmpty())
}
