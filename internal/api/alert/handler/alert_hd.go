package alertHandler

import (
	"MineGuard/internal/api/alert"
	contextPkg "MineGuard/pkg/context"
	"MineGuard/pkg/handlerUtil"
	"MineGuard/pkg/log"
	redisPkg "MineGuard/pkg/redis"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

func (h *AlertHandler) ListAlerts(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing list alerts request")

	var req alert.ListAlertsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_query")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.alertService.ListAlerts(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_alerts")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *AlertHandler) GetStats(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	stats, err := h.alertService.GetStats(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_alert_stats")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, alert.StatsResponse{
			Data: stats,
		})
	}
}

func (h *AlertHandler) AcknowledgeAlert(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"alert_id":   id,
	}).Debug("Processing acknowledge alert request")

	a, err := h.alertService.Acknowledge(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "acknowledge_alert")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, alert.AlertResponse{
			Data: a,
		})
	}
}

func (h *AlertHandler) RedeliverAlerts(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 30*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Info("Processing alert redelivery request")

	result, err := h.alertService.RedeliverPending(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "redeliver_alerts")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

// handleAlertStream forwards every alert insert event to one WebSocket
// viewer, same shape as the detection stream.
func (h *AlertHandler) handleAlertStream(c *websocket.Conn) {
	h.log.Info("Alert stream client connected")
	defer h.log.Info("Alert stream client disconnected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.redisServer.Subscribe(ctx, redisPkg.ChannelAlertInserted)
	defer pubsub.Close()

	go func() {
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}

			if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
				return
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.log.Errorf("Error forwarding alert event: %v", err)
				return
			}
		case <-pingTicker.C:
			if err := c.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
