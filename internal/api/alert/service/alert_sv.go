package alertService

import (
	"MineGuard/internal/api/alert"
	"MineGuard/internal/entity"
	contextPkg "MineGuard/pkg/context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Acknowledge is one-way and idempotent. The conditional update only
// touches unacknowledged rows, so repeat calls change nothing and keep
// the original acknowledgement timestamp.
func (s *alertService) Acknowledge(c context.Context, alertID string) (entity.Alert, error) {
	requestID := contextPkg.GetRequestID(c)

	client, err := s.alertRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create alert repository client")
		return entity.Alert{}, alert.ErrPersistence
	}

	updated, err := client.Alerts.AcknowledgeAlert(c, alertID, time.Now())
	if err != nil {
		return entity.Alert{}, alert.ErrPersistence
	}

	a, err := client.Alerts.GetByID(c, alertID)
	if err != nil {
		return entity.Alert{}, err
	}

	if !updated {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"alert_id":   alertID,
		}).Debug("Alert was already acknowledged")
	}

	return a, nil
}

func (s *alertService) ListAlerts(c context.Context, req alert.ListAlertsRequest) (alert.ListAlertsResponse, error) {
	if req.Limit == 0 {
		req.Limit = 50
	}

	client, err := s.alertRepo.NewClient(false)
	if err != nil {
		return alert.ListAlertsResponse{}, err
	}

	alerts, err := client.Alerts.ListAlerts(c, req.Acknowledged, req.Severity, req.Limit, req.Offset)
	if err != nil {
		return alert.ListAlertsResponse{}, err
	}

	total, err := client.Alerts.CountAlerts(c, req.Acknowledged, req.Severity)
	if err != nil {
		return alert.ListAlertsResponse{}, err
	}

	return alert.ListAlertsResponse{
		Data:   alerts,
		Total:  total,
		Limit:  req.Limit,
		Offset: req.Offset,
	}, nil
}

func (s *alertService) GetStats(c context.Context) (entity.AlertStats, error) {
	client, err := s.alertRepo.NewClient(false)
	if err != nil {
		return entity.AlertStats{}, err
	}

	return client.Alerts.GetStats(c)
}
