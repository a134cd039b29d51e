package models

// Direction of a leveraged position.
type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// PositionRequest describes a position to be assessed by the risk service.
type PositionRequest struct {
	Asset      string    `json:"asset" validate:"required"`
	Horizon    Horizon   `json:"horizon" default:"24h" validate:"oneof=1h 24h"`
	EntryPrice float64   `json:"entry_price" validate:"gt=0"`
	Leverage   float64   `json:"leverage" default:"1" validate:"gte=1,lte=125"`
	Direction  Direction `json:"direction" default:"long" validate:"oneof=long short"`
	TakeProfit *float64  `json:"take_profit,omitempty" validate:"omitempty,gt=0"`
	StopLoss   *float64  `json:"stop_loss,omitempty" validate:"omitempty,gt=0"`
}

// RiskLevels are the externally computed price lines. Nil means the service
// did not return that level.
type RiskLevels struct {
	Liquidation *float64 `json:"liquidation_line,omitempty"`
	TakeProfit  *float64 `json:"take_profit_line,omitempty"`
	StopLoss    *float64 `json:"stop_loss_line,omitempty"`
}

// Apply copies the levels into an overlay input.
func (r RiskLevels) Apply(in OverlayInput) OverlayInput {
	in.Liquidation = r.Liquidation
	in.TakeProfit = r.TakeProfit
	in.StopLoss = r.StopLoss
	return in
}
