package usecase

import "errors"

// ErrRiskUnavailable wraps failures of the external risk service.
var ErrRiskUnavailable = errors.New("risk service unavailable")
