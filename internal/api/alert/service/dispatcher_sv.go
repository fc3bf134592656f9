package alertService

import (
	"MineGuard/internal/api/alert"
	"MineGuard/internal/entity"
	contextPkg "MineGuard/pkg/context"
	redisPkg "MineGuard/pkg/redis"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const redeliverBatchSize = 100

// OnDetectionPersisted creates the alert row for a violating detection. The
// alerts table holds a UNIQUE constraint on detection_id, so concurrent
// attempts for the same detection resolve to one surviving row and the
// losers see a duplicate, which is success here, not an error.
func (s *alertService) OnDetectionPersisted(c context.Context, det entity.Detection) error {
	requestID := contextPkg.GetRequestID(c)

	if !det.IsViolation() {
		return nil
	}

	id, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to generate alert id")
		return alert.ErrPersistence
	}

	now := time.Now()
	a := entity.Alert{
		ID:          id,
		DetectionID: det.ID,
		AlertType:   entity.AlertTypeNoHelmet,
		Message:     entity.NewAlertMessage(det.Location, det.Confidence),
		Severity:    entity.SeverityForConfidence(det.Confidence),
		Location:    det.Location,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	client, err := s.alertRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create alert repository client")
		return alert.ErrPersistence
	}

	if err := client.Alerts.CreateAlert(c, a); err != nil {
		if errors.Is(err, alert.ErrDuplicateAlert) {
			s.metrics.DuplicateAlerts.Add(1)
			return nil
		}
		s.metrics.PersistenceErrors.Add(1)
		return alert.ErrPersistence
	}

	s.metrics.AlertsCreated.Add(1)
	s.log.WithFields(logrus.Fields{
		"request_id":   requestID,
		"alert_id":     a.ID,
		"detection_id": a.DetectionID,
		"severity":     a.Severity,
	}).Info("Alert created for helmet violation")

	payload, err := json.Marshal(a)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"alert_id":   a.ID,
			"error":      err.Error(),
		}).Error("Failed to encode alert insert event")
		return nil
	}

	if err := s.redisServer.Publish(c, redisPkg.ChannelAlertInserted, payload); err != nil {
		// The alert row is committed; a lost event delays the email until
		// the next redelivery sweep.
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"alert_id":   a.ID,
			"error":      err.Error(),
		}).Warn("Failed to publish alert insert event")
	} else {
		s.metrics.EventsPublished.Add(1)
	}

	return nil
}

// OnAlertCreated drives the email for one alert. It always re-reads the
// row first: the email decision must be made against current state, not
// against whatever snapshot the event carried.
func (s *alertService) OnAlertCreated(c context.Context, alertID string) error {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	requestID := contextPkg.GetRequestID(c)

	client, err := s.alertRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create alert repository client")
		return alert.ErrPersistence
	}

	a, err := client.Alerts.GetByID(c, alertID)
	if err != nil {
		return err
	}

	if a.Severity != entity.SeverityCritical || a.EmailSent {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"alert_id":   a.ID,
			"severity":   a.Severity,
			"email_sent": a.EmailSent,
		}).Debug("Alert does not need an email")
		return nil
	}

	notification := entity.AlertNotification{
		AlertID:      a.ID,
		WorkerEmail:  s.recipient,
		AlertMessage: a.Message,
		Severity:     a.Severity,
		Location:     a.Location,
		Timestamp:    a.CreatedAt,
	}

	messageID, err := s.mailClient.SendAlert(c, notification)
	if err != nil {
		s.metrics.EmailErrors.Add(1)
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"alert_id":   a.ID,
			"error":      err.Error(),
		}).Warn("Alert email failed, row stays unsent for redelivery")
		return alert.ErrEmailTransport
	}

	s.metrics.EmailsSent.Add(1)
	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"alert_id":   a.ID,
		"message_id": messageID,
	}).Info("Alert email delivered")

	updated, err := client.Alerts.MarkEmailSent(c, a.ID, time.Now())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"alert_id":   a.ID,
			"error":      err.Error(),
		}).Error("Email delivered but the sent flag could not be stored")
		return alert.ErrPersistence
	}
	if !updated {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"alert_id":   a.ID,
		}).Debug("Alert was already marked sent")
	}

	return nil
}

// RedeliverPending is the manual re-trigger: it creates alerts for
// violations whose insert event was lost, then retries unsent critical
// emails. Per-row failures are logged and skipped so one bad row cannot
// stall the sweep.
func (s *alertService) RedeliverPending(c context.Context) (alert.RedeliverResponse, error) {
	requestID := contextPkg.GetRequestID(c)
	var resp alert.RedeliverResponse

	client, err := s.alertRepo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create alert repository client")
		return resp, alert.ErrPersistence
	}

	violations, err := client.Alerts.ListUnalertedViolations(c, entity.ComplianceConfidenceThreshold, redeliverBatchSize)
	if err != nil {
		return resp, alert.ErrPersistence
	}

	for _, det := range violations {
		if err := s.OnDetectionPersisted(c, det); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id":   requestID,
				"detection_id": det.ID,
				"error":        err.Error(),
			}).Warn("Redelivery could not create alert")
			continue
		}
		resp.AlertsCreated++
	}

	unsent, err := client.Alerts.ListUnsentCritical(c, redeliverBatchSize)
	if err != nil {
		return resp, alert.ErrPersistence
	}

	for _, a := range unsent {
		if err := s.OnAlertCreated(c, a.ID); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"alert_id":   a.ID,
				"error":      err.Error(),
			}).Warn("Redelivery could not send alert email")
			continue
		}
		resp.EmailsSent++
	}

	s.log.WithFields(logrus.Fields{
		"request_id":     requestID,
		"alerts_created": resp.AlertsCreated,
		"emails_sent":    resp.EmailsSent,
	}).Info("Redelivery sweep finished")

	return resp, nil
}

// Run consumes the insert fan-out until ctx is cancelled. Delivery is
// at-least-once, so both handlers are idempotent: duplicate detection
// events hit the UNIQUE constraint, duplicate alert events see the sent
// flag already set.
func (s *alertService) Run(ctx context.Context) {
	pubsub := s.redisServer.Subscribe(ctx, redisPkg.ChannelDetectionInserted, redisPkg.ChannelAlertInserted)
	defer pubsub.Close()

	s.log.Info("Alert dispatcher consuming insert events")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Alert dispatcher stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				s.log.Warn("Alert dispatcher subscription closed")
				return
			}

			c := contextPkg.WithRequestID(ctx, uuid.New().String())

			switch msg.Channel {
			case redisPkg.ChannelDetectionInserted:
				var det entity.Detection
				if err := json.Unmarshal([]byte(msg.Payload), &det); err != nil {
					s.log.WithFields(logrus.Fields{
						"channel": msg.Channel,
						"error":   err.Error(),
					}).Warn("Dropping undecodable detection event")
					continue
				}
				if err := s.OnDetectionPersisted(c, det); err != nil {
					s.log.WithFields(logrus.Fields{
						"detection_id": det.ID,
						"error":        err.Error(),
					}).Warn("Detection event handling failed")
				}
			case redisPkg.ChannelAlertInserted:
				var a entity.Alert
				if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil {
					s.log.WithFields(logrus.Fields{
						"channel": msg.Channel,
						"error":   err.Error(),
					}).Warn("Dropping undecodable alert event")
					continue
				}
				if err := s.OnAlertCreated(c, a.ID); err != nil {
					s.log.WithFields(logrus.Fields{
						"alert_id": a.ID,
						"error":    err.Error(),
					}).Warn("Alert event handling failed")
				}
			}
		}
	}
}
