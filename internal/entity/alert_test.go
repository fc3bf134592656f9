package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSeverityForConfidence(t *testing.T) {
	require.Equal(t, SeverityCritical, SeverityForConfidence(0.95))
	require.Equal(t, SeverityCritical, SeverityForConfidence(0.9))
	require.Equal(t, SeverityHigh, SeverityForConfidence(0.89))
	require.Equal(t, SeverityHigh, SeverityForConfidence(0.75))
	require.Equal(t, SeverityMedium, SeverityForConfidence(0.74))
	require.Equal(t, SeverityMedium, SeverityForConfidence(0.61))
}

func TestNewAlertMessage(t *testing.T) {
	msg := NewAlertMessage("Shaft B", 0.9)
	require.Equal(t, "Worker without helmet detected at Shaft B (confidence 90%)", msg)
}

// The notify function parses these exact field names; renaming any of them
// silently breaks email delivery.
func TestAlertNotificationWireFormat(t *testing.T) {
	payload := AlertNotification{
		AlertID:      "01J9ZX",
		WorkerEmail:  "safety@acme-mine.example",
		AlertMessage: "Worker without helmet detected at Shaft B (confidence 90%)",
		Severity:     SeverityCritical,
		Location:     "Shaft B",
		Timestamp:    time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))

	require.Len(t, fields, 6)
	require.Contains(t, fields, "alertId")
	require.Contains(t, fields, "workerEmail")
	require.Contains(t, fields, "alertMessage")
	require.Contains(t, fields, "severity")
	require.Contains(t, fields, "location")
	require.Contains(t, fields, "timestamp")
}
