package alertService

import (
	"MineGuard/internal/api/alert"
	alertRepository "MineGuard/internal/api/alert/repository"
	"MineGuard/internal/entity"
	"MineGuard/pkg/mailer"
	"MineGuard/pkg/metrics"
	redisPkg "MineGuard/pkg/redis"
	"MineGuard/pkg/utils"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IAlertService interface {
	OnDetectionPersisted(ctx context.Context, det entity.Detection) error
	OnAlertCreated(ctx context.Context, alertID string) error
	Acknowledge(ctx context.Context, alertID string) (entity.Alert, error)
	RedeliverPending(ctx context.Context) (alert.RedeliverResponse, error)
	ListAlerts(ctx context.Context, req alert.ListAlertsRequest) (alert.ListAlertsResponse, error)
	GetStats(ctx context.Context) (entity.AlertStats, error)
	Run(ctx context.Context)
}

type alertService struct {
	log         *logrus.Logger
	alertRepo   alertRepository.Repository
	mailClient  mailer.ItfMailer
	redisServer redisPkg.IRedis
	utils       utils.IUtils
	metrics     *metrics.Metrics
	recipient   string

	// Serializes email dispatch so two concurrent triggers for one alert
	// cannot both pass the sent check before either marks the row.
	dispatchMu sync.Mutex
}

func New(
	log *logrus.Logger,
	alertRepo alertRepository.Repository,
	mailClient mailer.ItfMailer,
	redisServer redisPkg.IRedis,
	utils utils.IUtils,
	metrics *metrics.Metrics,
) IAlertService {
	recipient := os.Getenv("ALERT_RECIPIENT_EMAIL")
	if recipient == "" {
		log.Warn("ALERT_RECIPIENT_EMAIL is not set, alert emails will have no recipient")
	}

	return &alertService{
		log:         log,
		alertRepo:   alertRepo,
		mailClient:  mailClient,
		redisServer: redisServer,
		utils:       utils,
		metrics:     metrics,
		recipient:   recipient,
	}
}
