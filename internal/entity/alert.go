package entity

import (
	"fmt"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const AlertTypeNoHelmet = "no_helmet"

// SeverityForConfidence grades a violation by how sure the detector was.
// Every violation already cleared ComplianceConfidenceThreshold, so the
// bands only split the range above it.
func SeverityForConfidence(confidence float64) Severity {
	switch {
	case confidence >= 0.9:
		return SeverityCritical
	case confidence >= 0.75:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

type Alert struct {
	ID           string    `json:"id"`
	DetectionID  string    `json:"detection_id"`
	AlertType    string    `json:"alert_type"`
	Message      string    `json:"message"`
	Severity     Severity  `json:"severity"`
	Location     string    `json:"location"`
	EmailSent    bool      `json:"email_sent"`
	Acknowledged bool      `json:"acknowledged"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewAlertMessage renders the operator-facing text stored on the alert row.
func NewAlertMessage(location string, confidence float64) string {
	return fmt.Sprintf("Worker without helmet detected at %s (confidence %.0f%%)", location, confidence*100)
}

// AlertNotification is the email payload. The JSON field names are a wire
// contract with the notify function and must not change.
type AlertNotification struct {
	AlertID      string    `json:"alertId"`
	WorkerEmail  string    `json:"workerEmail"`
	AlertMessage string    `json:"alertMessage"`
	Severity     Severity  `json:"severity"`
	Location     string    `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
}

type AlertStats struct {
	Total        int64 `json:"total"`
	Unread       int64 `json:"unread"`
	Acknowledged int64 `json:"acknowledged"`
	EmailsSent   int64 `json:"emails_sent"`
	Low          int64 `json:"low"`
	Medium       int64 `json:"medium"`
	High         int64 `json:"high"`
	Critical     int64 `json:"critical"`
}
