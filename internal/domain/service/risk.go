package service

import (
	"context"

	"Prism/internal/domain/models"
)

// RiskLevels asks the external risk-analysis service for the price lines of
// a position. Nothing here computes risk locally.
type RiskLevels interface {
	Levels(ctx context.Context, req models.PositionRequest) (models.RiskLevels, error)
}
