package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// PercentileLevels are the cumulative probabilities every cone point carries,
// in ascending order.
var PercentileLevels = [9]float64{0.005, 0.05, 0.2, 0.35, 0.5, 0.65, 0.8, 0.95, 0.995}

// PercentileKeys are the wire keys used by the forecast provider for each level.
var PercentileKeys = [9]string{"0.005", "0.05", "0.2", "0.35", "0.5", "0.65", "0.8", "0.95", "0.995"}

// Percentiles holds one price per entry of PercentileLevels.
type Percentiles [9]float64

func (p Percentiles) P005() float64   { return p[0] }
func (p Percentiles) Median() float64 { return p[4] }
func (p Percentiles) P995() float64   { return p[8] }

// ConePoint is the percentile forecast at one future offset.
type ConePoint struct {
	SecondsAhead int64       `json:"seconds_ahead"`
	Prices       Percentiles `json:"prices"`
}

// PercentileCone is an ordered sequence of forecast points for one asset.
type PercentileCone struct {
	Asset        string      `json:"asset"`
	Horizon      Horizon     `json:"horizon"`
	CurrentPrice float64     `json:"current_price"`
	Points       []ConePoint `json:"points"`
	FetchedAt    time.Time   `json:"fetched_at"`
}

var (
	ErrTooFewPoints   = errors.New("cone has fewer than two points")
	ErrUnorderedCone  = errors.New("cone points are not ordered by offset")
	ErrNonMonotonic   = errors.New("percentiles decrease within a point")
	ErrNonFinitePrice = errors.New("cone contains a non-finite price")
)

// Validate checks the ordering invariants the density extractor relies on.
func (c PercentileCone) Validate() error {
	if len(c.Points) < 2 {
		return ErrTooFewPoints
	}
	for i, pt := range c.Points {
		if i > 0 && pt.SecondsAhead <= c.Points[i-1].SecondsAhead {
			return fmt.Errorf("point %d: %w", i, ErrUnorderedCone)
		}
		for k, v := range pt.Prices {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("point %d level %s: %w", i, PercentileKeys[k], ErrNonFinitePrice)
			}
			if k > 0 && v < pt.Prices[k-1] {
				return fmt.Errorf("point %d level %s: %w", i, PercentileKeys[k], ErrNonMonotonic)
			}
		}
	}
	return nil
}

// Terminal returns the point with the largest offset.
func (c PercentileCone) Terminal() (ConePoint, bool) {
	if len(c.Points) == 0 {
		return ConePoint{}, false
	}
	last := c.Points[0]
	for _, pt := range c.Points[1:] {
		if pt.SecondsAhead >= last.SecondsAhead {
			last = pt
		}
	}
	return last, true
}

// Key identifies the cone stream (asset and horizon).
func (c PercentileCone) Key() string {
	return SceneKey(c.Asset, c.Horizon)
}

// SceneKey builds the stream key used by caches, throttles and subscribers.
func SceneKey(asset string, h Horizon) string {
	return asset + ":" + string(h)
}
