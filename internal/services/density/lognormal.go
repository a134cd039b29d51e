package density

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// LogNormalPDF is the density at price x of a driftless log-normal process
// started at spot with annualised volatility after t years.
func LogNormalPDF(x, spot, volatility, t float64) float64 {
	if x <= 0 || t <= 0 || spot <= 0 || volatility <= 0 {
		return 0
	}
	sigma := volatility * math.Sqrt(t)
	dist := distuv.LogNormal{
		Mu:    math.Log(spot) - 0.5*volatility*volatility*t,
		Sigma: sigma,
	}
	return dist.Prob(x)
}
