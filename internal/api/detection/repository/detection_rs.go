package detectionRepository

import (
	"MineGuard/internal/api/detection"
	"MineGuard/internal/entity"
	contextPkg "MineGuard/pkg/context"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type DetectionDB struct {
	ID            sql.NullString  `db:"id"`
	SessionID     sql.NullString  `db:"session_id"`
	Location      sql.NullString  `db:"location"`
	HasHelmet     bool            `db:"has_helmet"`
	Confidence    sql.NullFloat64 `db:"confidence"`
	BoundingBoxes []byte          `db:"bounding_boxes"`
	SnapshotURL   sql.NullString  `db:"snapshot_url"`
	CapturedAt    sql.NullTime    `db:"captured_at"`
	CreatedAt     sql.NullTime    `db:"created_at"`
}

func (r *detectionRepository) CreateDetection(c context.Context, det entity.Detection) error {
	requestID := contextPkg.GetRequestID(c)

	boxes, err := json.Marshal(det.Boxes)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to encode bounding boxes for CreateDetection")
		return err
	}

	argsKV := map[string]interface{}{
		"id":             det.ID,
		"session_id":     det.SessionID,
		"location":       det.Location,
		"has_helmet":     det.HasHelmet,
		"confidence":     det.Confidence,
		"bounding_boxes": string(boxes),
		"snapshot_url":   det.SnapshotURL,
		"captured_at":    det.CapturedAt,
		"created_at":     time.Now(),
	}

	query, args, err := sqlx.Named(queryCreateDetection, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateDetection")
		return err
	}
	query = r.q.Rebind(query)

	_, err = r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating detection")

		return err
	}

	return nil
}

func (r *detectionRepository) GetByID(c context.Context, id string) (entity.Detection, error) {
	requestID := contextPkg.GetRequestID(c)
	var det DetectionDB

	argsKV := map[string]interface{}{
		"id": id,
	}

	query, args, err := sqlx.Named(queryGetDetectionById, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByID named query preparation err")

		return entity.Detection{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&det); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("GetByID no rows found")
			return entity.Detection{}, detection.ErrDetectionNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByID execution err")
		return entity.Detection{}, err
	}

	return r.makeDetection(det), nil
}

func (r *detectionRepository) ListDetections(c context.Context, sessionID string, limit, offset int) ([]entity.Detection, error) {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"session_id": sessionID,
		"limit":      limit,
		"offset":     offset,
	}

	query, args, err := sqlx.Named(queryListDetections, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListDetections named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	rows, err := r.q.QueryxContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListDetections execution err")
		return nil, err
	}
	defer rows.Close()

	detections := make([]entity.Detection, 0)
	for rows.Next() {
		var det DetectionDB
		if err := rows.StructScan(&det); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("ListDetections row scan err")
			return nil, err
		}
		detections = append(detections, r.makeDetection(det))
	}

	return detections, rows.Err()
}

func (r *detectionRepository) CountDetections(c context.Context, sessionID string) (int64, error) {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"session_id": sessionID,
	}

	query, args, err := sqlx.Named(queryCountDetections, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountDetections named query preparation err")
		return 0, err
	}

	query = r.q.Rebind(query)

	var count int64
	if err := r.q.QueryRowxContext(c, query, args...).Scan(&count); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountDetections execution err")
		return 0, err
	}

	return count, nil
}

func (r *detectionRepository) makeDetection(det DetectionDB) entity.Detection {
	var capturedAt, createdAt time.Time

	if det.CapturedAt.Valid {
		capturedAt = det.CapturedAt.Time
	}

	if det.CreatedAt.Valid {
		createdAt = det.CreatedAt.Time
	}

	var boxes []entity.BoundingBox
	if len(det.BoundingBoxes) > 0 {
		if err := json.Unmarshal(det.BoundingBoxes, &boxes); err != nil {
			r.log.WithFields(logrus.Fields{
				"detection_id": det.ID.String,
				"error":        err.Error(),
			}).Warn("Failed to decode stored bounding boxes")
		}
	}

	return entity.Detection{
		ID:          det.ID.String,
		SessionID:   det.SessionID.String,
		Location:    det.Location.String,
		HasHelmet:   det.HasHelmet,
		Confidence:  det.Confidence.Float64,
		Boxes:       boxes,
		SnapshotURL: det.SnapshotURL.String,
		CapturedAt:  capturedAt,
		CreatedAt:   createdAt,
	}
}
