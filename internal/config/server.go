package config

import (
	"MineGuard/database/postgres"
	alertHandler "MineGuard/internal/api/alert/handler"
	alertRepository "MineGuard/internal/api/alert/repository"
	alertService "MineGuard/internal/api/alert/service"
	detectionHandler "MineGuard/internal/api/detection/handler"
	detectionRepository "MineGuard/internal/api/detection/repository"
	detectionService "MineGuard/internal/api/detection/service"
	monitorHandler "MineGuard/internal/api/monitor/handler"
	monitorService "MineGuard/internal/api/monitor/service"
	"MineGuard/internal/middleware"
	classifierPkg "MineGuard/pkg/classifier"
	"MineGuard/pkg/mailer"
	"MineGuard/pkg/metrics"
	"MineGuard/pkg/redis"
	"MineGuard/pkg/s3"
	"MineGuard/pkg/utils"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type ServerOption func(*Server) error

type Server struct {
	engine      *fiber.App
	db          *sqlx.DB
	log         *logrus.Logger
	middleware  middleware.Middleware
	validator   *validator.Validate
	utils       utils.IUtils
	handlers    []handler
	redisServer redis.IRedis
	mailClient  mailer.ItfMailer
	classifier  classifierPkg.ItfClassifier
	s3Client    s3.ItfS3
	metrics     *metrics.Metrics

	alertSvc   alertService.IAlertService
	monitorSvc monitorService.IMonitorService

	dispatcherCancel context.CancelFunc
	dispatcherDone   chan struct{}
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}

		if err := postgres.Migrate(db); err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to run migrations: %v", err)
			}
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMailer(mailClient mailer.ItfMailer) ServerOption {
	return func(s *Server) error {
		s.mailClient = mailClient
		return nil
	}
}

func WithClassifier(classifier classifierPkg.ItfClassifier) ServerOption {
	return func(s *Server) error {
		s.classifier = classifier
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithMetrics() ServerOption {
	return func(s *Server) error {
		s.metrics = metrics.New()
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Detection domain
	detectionRepo := detectionRepository.New(s.db, s.log)
	detectionServices := detectionService.New(s.log, detectionRepo, s.classifier, s.redisServer, s.s3Client, s.utils, s.metrics)
	detectionHandlers := detectionHandler.New(s.log, s.validator, s.middleware, detectionServices, s.redisServer)

	// Alert domain
	alertRepo := alertRepository.New(s.db, s.log)
	alertServices := alertService.New(s.log, alertRepo, s.mailClient, s.redisServer, s.utils, s.metrics)
	alertHandlers := alertHandler.New(s.log, s.validator, s.middleware, alertServices, s.redisServer)

	// Monitoring sessions
	monitorServices := monitorService.New(s.log, detectionServices, s.utils, s.metrics)
	monitorHandlers := monitorHandler.New(s.log, s.validator, s.middleware, monitorServices)

	s.alertSvc = alertServices
	s.monitorSvc = monitorServices

	s.setupHealthCheck()
	s.setupMetrics()
	s.handlers = append(s.handlers, detectionHandlers, alertHandlers, monitorHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	router := s.engine.Group("/api/v1", s.middleware.NewRateLimiter)

	for _, h := range s.handlers {
		h.Start(router)
	}

	// The dispatcher consumes the insert fan-out for the whole process.
	dispatcherCtx, cancel := context.WithCancel(context.Background())
	s.dispatcherCancel = cancel
	s.dispatcherDone = make(chan struct{})

	go func() {
		defer close(s.dispatcherDone)
		s.alertSvc.Run(dispatcherCtx)
	}()

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops producers before consumers: sessions first, then the
// dispatcher, then the HTTP server and the shared clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.monitorSvc != nil {
		s.monitorSvc.StopAll()
	}

	if s.dispatcherCancel != nil {
		s.dispatcherCancel()
		select {
		case <-s.dispatcherDone:
		case <-ctx.Done():
			s.log.Warn("Dispatcher did not stop before the shutdown deadline")
		}
	}

	if err := s.engine.ShutdownWithContext(ctx); err != nil {
		s.log.Errorf("Fiber shutdown error: %v", err)
	}

	if s.classifier != nil {
		s.classifier.Close()
	}

	if s.redisServer != nil {
		if err := s.redisServer.Close(); err != nil {
			s.log.Errorf("Redis close error: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Database close error: %v", err)
		}
	}

	s.log.Info("Server stopped")
	return nil
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}

func (s *Server) setupMetrics() {
	s.engine.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
}
