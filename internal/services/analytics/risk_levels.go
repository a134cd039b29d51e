package analytics

import (
	"context"
	"fmt"

	"Prism/internal/domain/models"
	domsvc "Prism/internal/domain/service"
	"Prism/pkg/config"
)

const positionRiskPath = "/api/position-risk"

// HTTPRiskLevels reads liquidation, take-profit and stop-loss lines from the
// risk service's position analysis. Everything else in the answer is ignored.
type HTTPRiskLevels struct {
	base     *HTTPServiceBase
	attempts int
}

func NewHTTPRiskLevels(cfg *config.Config) *HTTPRiskLevels {
	return &HTTPRiskLevels{base: NewHTTPServiceBase(cfg), attempts: cfg.Risk.MaxRetries + 1}
}

type positionReq struct {
	Asset      string   `json:"asset"`
	EntryPrice float64  `json:"entry_price"`
	Leverage   float64  `json:"leverage"`
	Direction  string   `json:"direction"`
	TakeProfit *float64 `json:"take_profit,omitempty"`
	StopLoss   *float64 `json:"stop_loss,omitempty"`
	Horizon    string   `json:"horizon"`
}

type positionResp struct {
	ConeWithLevels models.RiskLevels `json:"cone_with_levels"`
}

func (r *HTTPRiskLevels) Levels(ctx context.Context, req models.PositionRequest) (models.RiskLevels, error) {
	var resp positionResp
	err := r.base.PostJSONWithRetry(ctx, positionRiskPath, positionReq{
		Asset:      req.Asset,
		EntryPrice: req.EntryPrice,
		Leverage:   req.Leverage,
		Direction:  string(req.Direction),
		TakeProfit: req.TakeProfit,
		StopLoss:   req.StopLoss,
		Horizon:    string(req.Horizon),
	}, &resp, r.attempts)
	if err != nil {
		return models.RiskLevels{}, fmt.Errorf("risk levels %s: %w", req.Asset, err)
	}
	return resp.ConeWithLevels, nil
}

var _ domsvc.RiskLevels = (*HTTPRiskLevels)(nil)
