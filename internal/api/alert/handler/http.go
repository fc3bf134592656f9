package alertHandler

import (
	alertService "MineGuard/internal/api/alert/service"
	"MineGuard/internal/middleware"
	redisPkg "MineGuard/pkg/redis"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type AlertHandler struct {
	log          *logrus.Logger
	validator    *validator.Validate
	middleware   middleware.Middleware
	alertService alertService.IAlertService
	redisServer  redisPkg.IRedis
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	as alertService.IAlertService,
	redisServer redisPkg.IRedis,
) *AlertHandler {
	return &AlertHandler{
		log:          log,
		validator:    validator,
		middleware:   middleware,
		alertService: as,
		redisServer:  redisServer,
	}
}

func (h *AlertHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	alerts := srv.Group("/alerts")
	alerts.Use("/ws", wsMiddleware)
	alerts.Get("/ws", websocket.New(h.handleAlertStream))
	alerts.Get("/stats", h.GetStats)
	alerts.Get("/", h.ListAlerts)
	alerts.Post("/redeliver", h.RedeliverAlerts)
	alerts.Post("/:id/acknowledge", h.AcknowledgeAlert)
}
