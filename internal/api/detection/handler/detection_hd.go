package detectionHandler

import (
	"MineGuard/internal/api/detection"
	contextPkg "MineGuard/pkg/context"
	"MineGuard/pkg/handlerUtil"
	"MineGuard/pkg/log"
	redisPkg "MineGuard/pkg/redis"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

func (h *DetectionHandler) ListDetections(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing list detections request")

	var req detection.ListDetectionsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_query")
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	result, err := h.detectionService.ListDetections(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_detections")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *DetectionHandler) GetDetection(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")

	det, err := h.detectionService.GetDetection(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_detection")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, detection.DetectionResponse{
			Data: det,
		})
	}
}

// handleDetectionStream forwards every detection insert event to one
// WebSocket viewer. Each connection holds its own Redis subscription, so
// viewers never interfere with each other.
func (h *DetectionHandler) handleDetectionStream(c *websocket.Conn) {
	h.log.Info("Detection stream client connected")
	defer h.log.Info("Detection stream client disconnected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubsub := h.redisServer.Subscribe(ctx, redisPkg.ChannelDetectionInserted)
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
				h.log.Errorf("Error forwarding detection event: %v", err)
				return
			}
		case <-pingTicker.C:
			if err := c.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		}
	}
}
