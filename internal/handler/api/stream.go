package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"Prism/internal/domain/models"
	"Prism/internal/usecase"
	xhttp "Prism/pkg/http"
	xlogger "Prism/pkg/logger"
)

const (
	writeWait  = 5 * time.Second
	readLimit  = 512
	primeAfter = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  64 * 1024,
	CheckOrigin:      func(*http.Request) bool { return true },
}

// Stream upgrades to a websocket and pushes binary msgpack frames for one
// asset/horizon until the client goes away.
func (h *SceneHandler) Stream(c echo.Context) error {
	req := &models.StreamRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	asset := normalizeAsset(req.Asset)
	hz := models.Horizon(req.Horizon)
	if err := h.svc.Supports(asset, hz); err != nil {
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	// A stream opened before the collector reached this key starts from a
	// freshly built scene.
	if _, ok := h.hub.Latest(models.SceneKey(asset, hz)); !ok {
		pctx, cancel := context.WithTimeout(c.Request().Context(), primeAfter)
		scene, err := h.svc.Scene(pctx, asset, hz)
		cancel()
		if err != nil {
			h.logger.Error("stream prime error", xlogger.String("asset", asset), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, toAppError(err))
		}
		h.hub.Broadcast(scene)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.String("asset", asset), xlogger.Error(err))
		return nil
	}
	defer conn.Close()
	// The server read/write timeouts would otherwise cut long-lived streams.
	_ = conn.SetReadDeadline(time.Time{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer cancel()
		conn.SetReadLimit(readLimit)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	session := usecase.NewFrameSession(h.hub, asset, hz, h.frameRate, h.metrics, h.logger)
	err = session.Run(ctx, func(b []byte) error {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.BinaryMessage, b)
	})
	if err != nil {
		h.logger.Warn("stream ended with error", xlogger.String("session", session.ID()), xlogger.Error(err))
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	return nil
}
