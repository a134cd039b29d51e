package models

// Requests for the scene HTTP endpoints.

type ConeRequest struct {
	Asset   string `param:"asset" json:"asset" validate:"required"`
	Horizon string `query:"horizon" json:"horizon" default:"24h" validate:"oneof=1h 24h"`
}

type OverlayRequest struct {
	Asset       string   `json:"asset" validate:"required"`
	Horizon     string   `json:"horizon" default:"24h" validate:"oneof=1h 24h"`
	TargetPrice *float64 `json:"target_price,omitempty"`
	Lower       *float64 `json:"lower,omitempty"`
	Upper       *float64 `json:"upper,omitempty"`
}

// Input converts the request into the mapper's input.
func (r OverlayRequest) Input() OverlayInput {
	return OverlayInput{TargetPrice: r.TargetPrice, RangeLow: r.Lower, RangeHigh: r.Upper}
}

type StreamRequest struct {
	Asset   string `param:"asset" validate:"required"`
	Horizon string `query:"horizon" default:"24h" validate:"oneof=1h 24h"`
}

type HistoryRequest struct {
	Asset   string `param:"asset" validate:"required"`
	Horizon string `query:"horizon" default:"24h" validate:"oneof=1h 24h"`
	Limit   int    `query:"limit" default:"20" validate:"gte=1,lte=500"`
}
