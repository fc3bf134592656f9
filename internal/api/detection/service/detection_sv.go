package detectionService

import (
	"MineGuard/internal/api/detection"
	"MineGuard/internal/entity"
	contextPkg "MineGuard/pkg/context"
	redisPkg "MineGuard/pkg/redis"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// SaveDetection commits one verdict. Violations get a best-effort snapshot
// upload first; the insert-event is published only after the row is
// committed, so subscribers never see uncommitted detections.
func (s *detectionService) SaveDetection(c context.Context, det entity.Detection, frame []byte) (entity.Detection, error) {
	requestID := contextPkg.GetRequestID(c)

	if det.IsViolation() && s.s3Client != nil && len(frame) > 0 {
		url, err := s.s3Client.UploadSnapshot(det.ID, frame, s.utils.FrameContentType(frame))
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id":   requestID,
				"detection_id": det.ID,
				"error":        err.Error(),
			}).Warn("Snapshot upload failed, persisting detection without snapshot")
		} else {
			det.SnapshotURL = url
		}
	}

	client, err := s.detectionRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create detection repository client")
		return entity.Detection{}, detection.ErrPersistence
	}

	if err := client.Detections.CreateDetection(c, det); err != nil {
		s.metrics.PersistenceErrors.Add(1)
		return entity.Detection{}, detection.ErrPersistence
	}

	payload, err := json.Marshal(det)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"detection_id": det.ID,
			"error":        err.Error(),
		}).Error("Failed to encode detection insert event")
		return det, nil
	}

	if err := s.redisServer.Publish(c, redisPkg.ChannelDetectionInserted, payload); err != nil {
		// The row is committed; a lost event only degrades the live feed
		// and is healed by the redelivery sweep.
		s.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"detection_id": det.ID,
			"error":        err.Error(),
		}).Warn("Failed to publish detection insert event")
	} else {
		s.metrics.EventsPublished.Add(1)
	}

	return det, nil
}

func (s *detectionService) GetDetection(c context.Context, id string) (entity.Detection, error) {
	client, err := s.detectionRepo.NewClient(false)
	if err != nil {
		return entity.Detection{}, err
	}

	det, err := client.Detections.GetByID(c, id)
	if err != nil {
		return entity.Detection{}, err
	}

	// Stored snapshot URLs point at a private bucket; readers get a
	// time-limited link instead.
	if det.SnapshotURL != "" && s.s3Client != nil {
		signed, err := s.s3Client.PresignUrl(det.SnapshotURL)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"detection_id": det.ID,
				"error":        err.Error(),
			}).Warn("Snapshot link could not be signed")
		} else {
			det.SnapshotURL = signed
		}
	}

	return det, nil
}

func (s *detectionService) ListDetections(c context.Context, req detection.ListDetectionsRequest) (detection.ListDetectionsResponse, error) {
	if req.Limit == 0 {
		req.Limit = 50
	}

	client, err := s.detectionRepo.NewClient(false)
	if err != nil {
		return detection.ListDetectionsResponse{}, err
	}

	detections, err := client.Detections.ListDetections(c, req.SessionID, req.Limit, req.Offset)
	if err != nil {
		return detection.ListDetectionsResponse{}, err
	}

	total, err := client.Detections.CountDetections(c, req.SessionID)
	if err != nil {
		return detection.ListDetectionsResponse{}, err
	}

	return detection.ListDetectionsResponse{
		Data:   detections,
		Total:  total,
		Limit:  req.Limit,
		Offset: req.Offset,
	}, nil
}
