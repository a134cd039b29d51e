package density

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"Prism/internal/domain/models"
)

const (
	// ZSpread is the two-sided normal distance between the 0.5th and 99.5th
	// percentiles (2 x 2.576).
	ZSpread = 5.152
	// BoundsPadding is the fraction of the raw range added on both ends.
	BoundsPadding = 0.10
)

// Extract reduces a percentile cone to the render parameters of its surface.
// It never fails: unusable input yields a value whose IsDegenerate reports true
// or whose Volatility is zero.
func Extract(cone models.PercentileCone, currentPrice float64) models.ConeRenderData {
	out := models.ConeRenderData{CurrentPrice: sanitize(currentPrice)}
	if len(cone.Points) < 2 {
		return out
	}

	lows := make([]float64, len(cone.Points))
	highs := make([]float64, len(cone.Points))
	for i, pt := range cone.Points {
		lows[i] = pt.Prices.P005()
		highs[i] = pt.Prices.P995()
	}
	lo, hi := floats.Min(lows), floats.Max(highs)
	if !finite(lo) || !finite(hi) || hi <= lo {
		return out
	}
	pad := (hi - lo) * BoundsPadding
	out.MinPrice = math.Max(0, lo-pad)
	out.MaxPrice = hi + pad

	term, _ := cone.Terminal()
	p005, p995 := term.Prices.P005(), term.Prices.P995()
	out.Volatility = InvertVolatility(p005, p995, cone.Horizon)
	if out.CurrentPrice > 0 && p995 >= p005 {
		out.SpreadPct = (p995 - p005) / out.CurrentPrice
	}
	return out
}

// InvertVolatility solves p995/p005 = exp(ZSpread * sigma * sqrt(T)) for the
// annualised sigma. Returns 0 when the spread is not strictly positive.
func InvertVolatility(p005, p995 float64, h models.Horizon) float64 {
	t := h.Years()
	if t <= 0 || p005 <= 0 || p995 <= p005 || !finite(p005) || !finite(p995) {
		return 0
	}
	v := math.Log(p995/p005) / (ZSpread * math.Sqrt(t))
	if !finite(v) {
		return 0
	}
	return v
}

// ForwardLogSpread is ln(p995/p005) implied by volatility over the horizon.
func ForwardLogSpread(volatility float64, h models.Horizon) float64 {
	return volatility * ZSpread * math.Sqrt(h.Years())
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func sanitize(v float64) float64 {
	if !finite(v) {
		return 0
	}
	return v
}
