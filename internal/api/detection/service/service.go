package detectionService

import (
	"MineGuard/internal/api/detection"
	detectionRepository "MineGuard/internal/api/detection/repository"
	"MineGuard/internal/entity"
	classifierPkg "MineGuard/pkg/classifier"
	"MineGuard/pkg/metrics"
	redisPkg "MineGuard/pkg/redis"
	"MineGuard/pkg/s3"
	"MineGuard/pkg/utils"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IDetectionService interface {
	Evaluate(raw []entity.RawDetection, at time.Time) entity.Detection
	ProcessFrame(ctx context.Context, sessionID string, location string, frame []byte) (entity.Detection, error)
	SaveDetection(ctx context.Context, det entity.Detection, frame []byte) (entity.Detection, error)
	GetDetection(ctx context.Context, id string) (entity.Detection, error)
	ListDetections(ctx context.Context, req detection.ListDetectionsRequest) (detection.ListDetectionsResponse, error)
}

type detectionService struct {
	log           *logrus.Logger
	detectionRepo detectionRepository.Repository
	classifier    classifierPkg.ItfClassifier
	redisServer   redisPkg.IRedis
	s3Client      s3.ItfS3
	utils         utils.IUtils
	metrics       *metrics.Metrics
}

func New(
	log *logrus.Logger,
	detectionRepo detectionRepository.Repository,
	classifier classifierPkg.ItfClassifier,
	redisServer redisPkg.IRedis,
	s3Client s3.ItfS3,
	utils utils.IUtils,
	metrics *metrics.Metrics,
) IDetectionService {
	return &detectionService{
		log:           log,
		detectionRepo: detectionRepo,
		classifier:    classifier,
		redisServer:   redisServer,
		s3Client:      s3Client,
		utils:         utils,
		metrics:       metrics,
	}
}
