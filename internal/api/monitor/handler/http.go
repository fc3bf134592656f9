package monitorHandler

import (
	monitorService "MineGuard/internal/api/monitor/service"
	"MineGuard/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type MonitorHandler struct {
	log            *logrus.Logger
	validator      *validator.Validate
	middleware     middleware.Middleware
	monitorService monitorService.IMonitorService
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ms monitorService.IMonitorService,
) *MonitorHandler {
	return &MonitorHandler{
		log:            log,
		validator:      validator,
		middleware:     middleware,
		monitorService: ms,
	}
}

func (h *MonitorHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	sessions := srv.Group("/monitor/sessions")
	sessions.Use("/:id/ws", wsMiddleware)
	sessions.Get("/:id/ws", websocket.New(h.handleSessionSocket))
	sessions.Post("/", h.StartSession)
	sessions.Get("/:id", h.GetSession)
	sessions.Delete("/:id", h.StopSession)
}
