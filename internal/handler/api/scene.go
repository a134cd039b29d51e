package api

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"Prism/internal/domain/models"
	drepo "Prism/internal/domain/repository"
	"Prism/internal/service/metrics"
	"Prism/internal/service/ratelimit"
	"Prism/internal/service/synth"
	"Prism/internal/usecase"
	xhttp "Prism/pkg/http"
	xlogger "Prism/pkg/logger"
)

// SceneAPI is the part of usecase.SceneService the handlers call.
type SceneAPI interface {
	Supports(asset string, h models.Horizon) error
	Scene(ctx context.Context, asset string, h models.Horizon) (models.Scene, error)
	Snapshot(ctx context.Context, asset string, h models.Horizon) (models.SceneSnapshot, error)
	Overlay(ctx context.Context, req models.OverlayRequest) (models.OverlayResult, error)
	RiskOverlay(ctx context.Context, pos models.PositionRequest) (models.OverlayResult, error)
	Assets(ctx context.Context) []usecase.AssetInfo
}

var _ SceneAPI = (*usecase.SceneService)(nil)

// SceneHandler serves snapshots, overlays, history and the frame stream.
type SceneHandler struct {
	logger    *xlogger.Logger
	svc       SceneAPI
	hub       *usecase.SceneHub
	store     drepo.ConeStore
	rl        *ratelimit.Limiter
	metrics   drepo.Metrics
	frameRate int
}

func NewSceneHandler(logger *xlogger.Logger, svc SceneAPI, hub *usecase.SceneHub, store drepo.ConeStore, rl *ratelimit.Limiter, m drepo.Metrics, frameRate int) *SceneHandler {
	metrics.Register()
	return &SceneHandler{
		logger:    logger,
		svc:       svc,
		hub:       hub,
		store:     store,
		rl:        rl,
		metrics:   m,
		frameRate: frameRate,
	}
}

func (h *SceneHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/assets", h.observe("assets", h.Assets))
	g.GET("/cone/:asset", h.observe("cone", h.Cone))
	g.GET("/history/:asset", h.observe("history", h.History))
	g.POST("/overlay", h.observe("overlay", h.Overlay))
	g.POST("/position-overlay", h.observe("position_overlay", h.PositionOverlay))
	g.GET("/stream/:asset", h.observe("stream", h.Stream))
}

// observe wraps an endpoint with latency/error metrics and the per-client
// rate limit.
func (h *SceneHandler) observe(endpoint string, next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		defer func() {
			metrics.SceneLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}()

		if h.rl != nil && !h.rl.Allow(c.RealIP()+":"+endpoint) {
			metrics.RateLimited.WithLabelValues(endpoint).Inc()
			h.logger.Warn("rate limited", xlogger.String("endpoint", endpoint), xlogger.String("remote", c.RealIP()))
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
		}

		err := next(c)
		if err != nil || c.Response().Status >= 500 {
			metrics.SceneErrors.WithLabelValues(endpoint).Inc()
		}
		return err
	}
}

func (h *SceneHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (h *SceneHandler) Assets(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.svc.Assets(c.Request().Context()))
}

func (h *SceneHandler) Cone(c echo.Context) error {
	req := &models.ConeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	asset := normalizeAsset(req.Asset)

	snap, err := h.svc.Snapshot(c.Request().Context(), asset, models.Horizon(req.Horizon))
	if err != nil {
		h.logger.Error("cone usecase error", xlogger.String("asset", asset), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, snap)
}

func (h *SceneHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.store == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("render history is not enabled"))
	}
	asset := normalizeAsset(req.Asset)
	hz := models.Horizon(req.Horizon)
	if err := h.svc.Supports(asset, hz); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	recs, err := h.store.Recent(c.Request().Context(), asset, hz, req.Limit)
	if err != nil {
		h.logger.Error("history store error", xlogger.String("asset", asset), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("cannot read render history").WithError(err))
	}
	return xhttp.SuccessResponse(c, recs)
}

func (h *SceneHandler) Overlay(c echo.Context) error {
	req := &models.OverlayRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.Asset = normalizeAsset(req.Asset)

	res, err := h.svc.Overlay(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("overlay usecase error", xlogger.String("asset", req.Asset), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *SceneHandler) PositionOverlay(c echo.Context) error {
	req := &models.PositionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.Asset = normalizeAsset(req.Asset)

	res, err := h.svc.RiskOverlay(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("position overlay usecase error", xlogger.String("asset", req.Asset), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

func normalizeAsset(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// toAppError maps usecase and collaborator errors onto HTTP statuses.
func toAppError(err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, synth.ErrUnknownAsset):
		return xhttp.BadRequestErrorf("unknown asset").WithError(err)
	case errors.Is(err, synth.ErrUnsupportedHorizon):
		return xhttp.BadRequestErrorf("horizon not supported for this asset").WithError(err)
	case errors.Is(err, models.ErrUnknownHorizon):
		return xhttp.BadRequestErrorf("unknown horizon").WithError(err)
	case errors.Is(err, synth.ErrUpstream):
		return xhttp.ServiceUnavailableError("cannot retrieve forecast").WithError(err)
	case errors.Is(err, usecase.ErrRiskUnavailable):
		return xhttp.ServiceUnavailableError("risk service unavailable").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.ServiceUnavailableError("request timed out").WithError(err)
	}
	return err
}
