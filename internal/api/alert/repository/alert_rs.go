package alertRepository

import (
	"MineGuard/internal/api/alert"
	"MineGuard/internal/entity"
	contextPkg "MineGuard/pkg/context"
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type AlertDB struct {
	ID           sql.NullString `db:"id"`
	DetectionID  sql.NullString `db:"detection_id"`
	AlertType    sql.NullString `db:"alert_type"`
	Message      sql.NullString `db:"message"`
	Severity     sql.NullString `db:"severity"`
	Location     sql.NullString `db:"location"`
	EmailSent    bool           `db:"email_sent"`
	Acknowledged bool           `db:"acknowledged"`
	CreatedAt    sql.NullTime   `db:"created_at"`
	UpdatedAt    sql.NullTime   `db:"updated_at"`
}

type AlertStatsDB struct {
	Total        int64 `db:"total"`
	Unread       int64 `db:"unread"`
	Acknowledged int64 `db:"acknowledged"`
	EmailsSent   int64 `db:"emails_sent"`
	Low          int64 `db:"low"`
	Medium       int64 `db:"medium"`
	High         int64 `db:"high"`
	Critical     int64 `db:"critical"`
}

type ViolationDB struct {
	ID         sql.NullString  `db:"id"`
	SessionID  sql.NullString  `db:"session_id"`
	Location   sql.NullString  `db:"location"`
	HasHelmet  bool            `db:"has_helmet"`
	Confidence sql.NullFloat64 `db:"confidence"`
	CapturedAt sql.NullTime    `db:"captured_at"`
}

func (r *alertRepository) CreateAlert(c context.Context, a entity.Alert) error {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"id":           a.ID,
		"detection_id": a.DetectionID,
		"alert_type":   a.AlertType,
		"message":      a.Message,
		"severity":     string(a.Severity),
		"location":     a.Location,
		"email_sent":   a.EmailSent,
		"acknowledged": a.Acknowledged,
		"created_at":   a.CreatedAt,
		"updated_at":   a.UpdatedAt,
	}

	query, args, err := sqlx.Named(queryCreateAlert, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateAlert")
		return err
	}
	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {

		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505":
				if pqErr.Constraint == "alerts_detection_id_key" {
					r.log.WithFields(logrus.Fields{
						"request_id":   requestID,
						"detection_id": a.DetectionID,
					}).Debug("Alert already exists for detection")
					return alert.ErrDuplicateAlert
				}
			}
		}

		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating alert")

		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CreateAlert rows affected err")
		return err
	}

	// ON CONFLICT DO NOTHING swallows the duplicate instead of raising 23505,
	// so a zero row count is the duplicate signal here.
	if rows == 0 {
		r.log.WithFields(logrus.Fields{
			"request_id":   requestID,
			"detection_id": a.DetectionID,
		}).Debug("Alert already exists for detection")
		return alert.ErrDuplicateAlert
	}

	return nil
}

func (r *alertRepository) GetByID(c context.Context, id string) (entity.Alert, error) {
	requestID := contextPkg.GetRequestID(c)
	var a AlertDB

	argsKV := map[string]interface{}{
		"id": id,
	}

	query, args, err := sqlx.Named(queryGetAlertById, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByID named query preparation err")

		return entity.Alert{}, err
	}

	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("GetByID no rows found")
			return entity.Alert{}, alert.ErrAlertNotFound
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetByID execution err")
		return entity.Alert{}, err
	}

	return r.makeAlert(a), nil
}

func (r *alertRepository) MarkEmailSent(c context.Context, id string, at time.Time) (bool, error) {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"id":         id,
		"updated_at": at,
	}

	query, args, err := sqlx.Named(queryMarkEmailSent, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("MarkEmailSent named query preparation err")
		return false, err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when marking alert email sent")
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("MarkEmailSent rows affected err")
		return false, err
	}

	return rows > 0, nil
}

func (r *alertRepository) AcknowledgeAlert(c context.Context, id string, at time.Time) (bool, error) {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"id":         id,
		"updated_at": at,
	}

	query, args, err := sqlx.Named(queryAcknowledgeAlert, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("AcknowledgeAlert named query preparation err")
		return false, err
	}

	query = r.q.Rebind(query)

	result, err := r.q.ExecContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when acknowledging alert")
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("AcknowledgeAlert rows affected err")
		return false, err
	}

	return rows > 0, nil
}

func (r *alertRepository) ListAlerts(c context.Context, acknowledged, severity string, limit, offset int) ([]entity.Alert, error) {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"acknowledged": acknowledged,
		"severity":     severity,
		"limit":        limit,
		"offset":       offset,
	}

	query, args, err := sqlx.Named(queryListAlerts, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListAlerts named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	rows, err := r.q.QueryxContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListAlerts execution err")
		return nil, err
	}
	defer rows.Close()

	alerts := make([]entity.Alert, 0)
	for rows.Next() {
		var a AlertDB
		if err := rows.StructScan(&a); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("ListAlerts row scan err")
			return nil, err
		}
		alerts = append(alerts, r.makeAlert(a))
	}

	return alerts, rows.Err()
}

func (r *alertRepository) CountAlerts(c context.Context, acknowledged, severity string) (int64, error) {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"acknowledged": acknowledged,
		"severity":     severity,
	}

	query, args, err := sqlx.Named(queryCountAlerts, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountAlerts named query preparation err")
		return 0, err
	}

	query = r.q.Rebind(query)

	var count int64
	if err := r.q.QueryRowxContext(c, query, args...).Scan(&count); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("CountAlerts execution err")
		return 0, err
	}

	return count, nil
}

func (r *alertRepository) GetStats(c context.Context) (entity.AlertStats, error) {
	requestID := contextPkg.GetRequestID(c)
	var stats AlertStatsDB

	if err := r.q.QueryRowxContext(c, queryAlertStats).StructScan(&stats); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetStats execution err")
		return entity.AlertStats{}, err
	}

	return entity.AlertStats{
		Total:        stats.Total,
		Unread:       stats.Unread,
		Acknowledged: stats.Acknowledged,
		EmailsSent:   stats.EmailsSent,
		Low:          stats.Low,
		Medium:       stats.Medium,
		High:         stats.High,
		Critical:     stats.Critical,
	}, nil
}

func (r *alertRepository) ListUnsentCritical(c context.Context, limit int) ([]entity.Alert, error) {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"limit": limit,
	}

	query, args, err := sqlx.Named(queryListUnsentCritical, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListUnsentCritical named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	rows, err := r.q.QueryxContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListUnsentCritical execution err")
		return nil, err
	}
	defer rows.Close()

	alerts := make([]entity.Alert, 0)
	for rows.Next() {
		var a AlertDB
		if err := rows.StructScan(&a); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("ListUnsentCritical row scan err")
			return nil, err
		}
		alerts = append(alerts, r.makeAlert(a))
	}

	return alerts, rows.Err()
}

func (r *alertRepository) ListUnalertedViolations(c context.Context, threshold float64, limit int) ([]entity.Detection, error) {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"threshold": threshold,
		"limit":     limit,
	}

	query, args, err := sqlx.Named(queryListUnalertedViolations, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListUnalertedViolations named query preparation err")
		return nil, err
	}

	query = r.q.Rebind(query)

	rows, err := r.q.QueryxContext(c, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("ListUnalertedViolations execution err")
		return nil, err
	}
	defer rows.Close()

	detections := make([]entity.Detection, 0)
	for rows.Next() {
		var v ViolationDB
		if err := rows.StructScan(&v); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("ListUnalertedViolations row scan err")
			return nil, err
		}

		var capturedAt time.Time
		if v.CapturedAt.Valid {
			capturedAt = v.CapturedAt.Time
		}

		detections = append(detections, entity.Detection{
			ID:         v.ID.String,
			SessionID:  v.SessionID.String,
			Location:   v.Location.String,
			HasHelmet:  v.HasHelmet,
			Confidence: v.Confidence.Float64,
			CapturedAt: capturedAt,
		})
	}

	return detections, rows.Err()
}

func (r *alertRepository) makeAlert(a AlertDB) entity.Alert {
	var createdAt, updatedAt time.Time

	if a.CreatedAt.Valid {
		createdAt = a.CreatedAt.Time
	}

	if a.UpdatedAt.Valid {
		updatedAt = a.UpdatedAt.Time
	}

	return entity.Alert{
		ID:           a.ID.String,
		DetectionID:  a.DetectionID.String,
		AlertType:    a.AlertType.String,
		Message:      a.Message.String,
		Severity:     entity.Severity(a.Severity.String),
		Location:     a.Location.String,
		EmailSent:    a.EmailSent,
		Acknowledged: a.Acknowledged,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}
