package models

// OverlayAbsent marks a coordinate with no line to draw.
const OverlayAbsent = -1.0

// OverlayInput carries the optional price levels to project onto the surface.
// A nil field means the level is not set.
type OverlayInput struct {
	TargetPrice *float64 `json:"target_price,omitempty"`
	RangeLow    *float64 `json:"range_low,omitempty"`
	RangeHigh   *float64 `json:"range_high,omitempty"`
	Liquidation *float64 `json:"liquidation,omitempty"`
	TakeProfit  *float64 `json:"take_profit,omitempty"`
	StopLoss    *float64 `json:"stop_loss,omitempty"`
}

// OverlayCoordinates are normalised positions across the price axis:
// 0 is MinPrice, 1 is MaxPrice. Values outside [0,1] are legal.
type OverlayCoordinates struct {
	HighlightMin    float64 `json:"highlight_min"`
	HighlightMax    float64 `json:"highlight_max"`
	TargetLine      float64 `json:"target_line"`
	LiquidationLine float64 `json:"liquidation_line"`
	TakeProfitLine  float64 `json:"take_profit_line"`
	StopLossLine    float64 `json:"stop_loss_line"`
}

// LayerKind names one overlay drawn by the shading stage.
type LayerKind string

const (
	LayerHighlight   LayerKind = "highlight"
	LayerTarget      LayerKind = "target"
	LayerLiquidation LayerKind = "liquidation"
	LayerTakeProfit  LayerKind = "take_profit"
	LayerStopLoss    LayerKind = "stop_loss"
)

// OverlayLayer is one entry of the ordered draw list.
type OverlayLayer struct {
	Kind    LayerKind `json:"kind"`
	From    float64   `json:"from"`
	To      float64   `json:"to"`
	Colour  string    `json:"colour"`
	Pulsing bool      `json:"pulsing"`
}

// Float returns a pointer to v; convenient for building OverlayInput.
func Float(v float64) *float64 { return &v }
