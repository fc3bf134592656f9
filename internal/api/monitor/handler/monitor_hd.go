package monitorHandler

import (
	"MineGuard/internal/api/monitor"
	contextPkg "MineGuard/pkg/context"
	"MineGuard/pkg/handlerUtil"
	"MineGuard/pkg/log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

func (h *MonitorHandler) StartSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing start session request")

	var req monitor.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_body")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	sess, err := h.monitorService.StartSession(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "start_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusCreated, monitor.SessionResponse{
			Data: sess,
		})
	}
}

func (h *MonitorHandler) GetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")

	sess, err := h.monitorService.GetSession(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, monitor.SessionResponse{
			Data: sess,
		})
	}
}

func (h *MonitorHandler) StopSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": id,
	}).Debug("Processing stop session request")

	if err := h.monitorService.StopSession(c, id); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "stop_session")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, monitor.StopSessionResponse{
			ID:      id,
			Message: "monitoring session stopped",
		})
	}
}

// handleSessionSocket is the per-session duplex stream: binary messages in
// are webcam frames for the sampling loop, JSON messages out are verdicts,
// access edges and degraded-mode notices.
func (h *MonitorHandler) handleSessionSocket(c *websocket.Conn) {
	id := c.Params("id")

	logger := h.log.WithField("session_id", id)

	watcher, err := h.monitorService.AddWatcher(id)
	if err != nil {
		logger.Warnf("Session socket rejected: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": err.Error()})
		return
	}
	defer h.monitorService.RemoveWatcher(id, watcher)

	logger.Info("Session socket connected")
	defer logger.Info("Session socket disconnected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			messageType, data, err := c.ReadMessage()
			if err != nil {
				cancel()
				return
			}

			if messageType != websocket.BinaryMessage {
				continue
			}

			if err := h.monitorService.SubmitFrame(ctx, id, data); err != nil {
				logger.Debugf("Frame rejected: %v", err)
			}
		}
	}()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher:
			if !ok {
				// Session stopped while this viewer was attached.
				return
			}

			if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				return
			}

			if err := c.WriteJSON(ev); err != nil {
				logger.Errorf("Error forwarding session event: %v", err)
				return
			}
		case <-pingTicker.C:
			if err := c.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
