package monitorService

import (
	detectionService "MineGuard/internal/api/detection/service"
	"MineGuard/internal/api/monitor"
	"MineGuard/internal/entity"
	"MineGuard/pkg/metrics"
	"MineGuard/pkg/utils"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	defaultSampleInterval = time.Second
	defaultLocation       = "Mine Entrance"

	// One tick must finish inside this window, classifier call included.
	tickTimeout = 15 * time.Second

	watcherBuffer = 16
)

type IMonitorService interface {
	StartSession(ctx context.Context, req monitor.StartSessionRequest) (entity.MonitorSession, error)
	StopSession(ctx context.Context, id string) error
	GetSession(ctx context.Context, id string) (entity.MonitorSession, error)
	SubmitFrame(ctx context.Context, id string, frame []byte) error
	AddWatcher(id string) (chan entity.SessionEvent, error)
	RemoveWatcher(id string, watcher chan entity.SessionEvent)
	StopAll()
}

type monitorService struct {
	log              *logrus.Logger
	detectionService detectionService.IDetectionService
	utils            utils.IUtils
	metrics          *metrics.Metrics

	sampleInterval time.Duration
	location       string

	mu       sync.RWMutex
	sessions map[string]*session
}

func New(
	log *logrus.Logger,
	ds detectionService.IDetectionService,
	utils utils.IUtils,
	metrics *metrics.Metrics,
) IMonitorService {
	sampleInterval := defaultSampleInterval
	if ms, err := strconv.Atoi(os.Getenv("SAMPLE_INTERVAL_MS")); err == nil && ms > 0 {
		sampleInterval = time.Duration(ms) * time.Millisecond
	}

	location := os.Getenv("MINE_LOCATION")
	if location == "" {
		location = defaultLocation
	}

	return &monitorService{
		log:              log,
		detectionService: ds,
		utils:            utils,
		metrics:          metrics,
		sampleInterval:   sampleInterval,
		location:         location,
		sessions:         make(map[string]*session),
	}
}
