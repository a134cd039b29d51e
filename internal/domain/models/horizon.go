package models

import (
	"errors"
	"fmt"
	"strings"
)

// Horizon is the forecast window tag.
type Horizon string

const (
	Horizon1h  Horizon = "1h"
	Horizon24h Horizon = "24h"
)

const daysPerYear = 365.25

var ErrUnknownHorizon = errors.New("unknown horizon")

// ParseHorizon accepts only the recognised tags.
func ParseHorizon(s string) (Horizon, error) {
	switch Horizon(strings.ToLower(strings.TrimSpace(s))) {
	case Horizon1h:
		return Horizon1h, nil
	case Horizon24h:
		return Horizon24h, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownHorizon, s)
}

// Seconds is the length of the window in seconds.
func (h Horizon) Seconds() int64 {
	switch h {
	case Horizon1h:
		return 3600
	case Horizon24h:
		return 86400
	}
	return 0
}

// Days is the length of the window in days.
func (h Horizon) Days() float64 {
	return float64(h.Seconds()) / 86400
}

// Years is the window expressed in years of 365.25 days.
func (h Horizon) Years() float64 {
	return h.Days() / daysPerYear
}

func (h Horizon) Valid() bool { return h.Seconds() > 0 }
