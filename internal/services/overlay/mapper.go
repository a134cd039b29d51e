package overlay

import (
	"math"

	"Prism/internal/domain/models"
)

// Normalize maps price onto the render range. Returns OverlayAbsent for a nil
// or non-finite price, or when the range is degenerate. No clamping.
func Normalize(data models.ConeRenderData, price *float64) float64 {
	if price == nil || math.IsNaN(*price) || math.IsInf(*price, 0) {
		return models.OverlayAbsent
	}
	r := data.Range()
	if !(r > 0) || math.IsInf(r, 0) {
		return models.OverlayAbsent
	}
	return (*price - data.MinPrice) / r
}

// Map projects every overlay level onto the price axis independently.
func Map(data models.ConeRenderData, in models.OverlayInput) models.OverlayCoordinates {
	return models.OverlayCoordinates{
		HighlightMin:    Normalize(data, in.RangeLow),
		HighlightMax:    Normalize(data, in.RangeHigh),
		TargetLine:      Normalize(data, in.TargetPrice),
		LiquidationLine: Normalize(data, in.Liquidation),
		TakeProfitLine:  Normalize(data, in.TakeProfit),
		StopLossLine:    Normalize(data, in.StopLoss),
	}
}

func present(v float64) bool { return v != models.OverlayAbsent }

// band resolves the highlight extent. A one-sided query (above a lower bound
// or below an upper bound) runs to the matching edge of the price axis and is
// dropped when the bound lies beyond that edge.
func band(low, high float64) (lo, hi float64, ok bool) {
	switch {
	case present(low) && present(high):
		if low > high {
			low, high = high, low
		}
		return low, high, true
	case present(low):
		return low, 1, low < 1
	case present(high):
		return 0, high, high > 0
	}
	return 0, 0, false
}

// Layers returns the draw list in shading order. Take-profit and stop-loss
// come last so they win where lines coincide.
func Layers(c models.OverlayCoordinates) []models.OverlayLayer {
	var out []models.OverlayLayer
	if lo, hi, ok := band(c.HighlightMin, c.HighlightMax); ok {
		out = append(out, models.OverlayLayer{Kind: models.LayerHighlight, From: lo, To: hi, Colour: "cyan", Pulsing: true})
	}
	line := func(kind models.LayerKind, at float64, colour string, pulsing bool) {
		if present(at) {
			out = append(out, models.OverlayLayer{Kind: kind, From: at, To: at, Colour: colour, Pulsing: pulsing})
		}
	}
	line(models.LayerTarget, c.TargetLine, "white", true)
	line(models.LayerLiquidation, c.LiquidationLine, "red", true)
	line(models.LayerTakeProfit, c.TakeProfitLine, "green", false)
	line(models.LayerStopLoss, c.StopLossLine, "orange", false)
	return out
}
