package detectionHandler

import (
	detectionService "MineGuard/internal/api/detection/service"
	"MineGuard/internal/middleware"
	redisPkg "MineGuard/pkg/redis"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type DetectionHandler struct {
	log              *logrus.Logger
	validator        *validator.Validate
	middleware       middleware.Middleware
	detectionService detectionService.IDetectionService
	redisServer      redisPkg.IRedis
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ds detectionService.IDetectionService,
	redisServer redisPkg.IRedis,
) *DetectionHandler {
	return &DetectionHandler{
		log:              log,
		validator:        validator,
		middleware:       middleware,
		detectionService: ds,
		redisServer:      redisServer,
	}
}

func (h *DetectionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	detections := srv.Group("/detections")
	detections.Use("/ws", wsMiddleware)
	detections.Get("/ws", websocket.New(h.handleDetectionStream))
	detections.Get("/", h.ListDetections)
	detections.Get("/:id", h.GetDetection)
}
