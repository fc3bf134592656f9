package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"MineGuard/internal/entity"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testNotification() entity.AlertNotification {
	return entity.AlertNotification{
		AlertID:      "01J9ZXALERT00000000000001",
		WorkerEmail:  "safety@acme-mine.example",
		AlertMessage: "Worker without helmet detected at Shaft B (confidence 90%)",
		Severity:     entity.SeverityCritical,
		Location:     "Shaft B",
		Timestamp:    time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
	}
}

func TestFunctionMailerPostsWireFormat(t *testing.T) {
	var gotBody []byte
	var gotAuth, gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"id":"msg-42"}`))
	}))
	defer srv.Close()

	m := &functionMailer{url: srv.URL, key: "fn-key", client: srv.Client(), log: testLogger()}

	id, err := m.SendAlert(context.Background(), testNotification())
	require.NoError(t, err)
	require.Equal(t, "msg-42", id)
	require.Equal(t, "Bearer fn-key", gotAuth)
	require.Equal(t, "application/json", gotContentType)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(gotBody, &fields))
	require.Len(t, fields, 6)
	for _, key := range []string{"alertId", "workerEmail", "alertMessage", "severity", "location", "timestamp"} {
		require.Contains(t, fields, key)
	}
}

func TestFunctionMailerErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "function crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	m := &functionMailer{url: srv.URL, client: srv.Client(), log: testLogger()}

	_, err := m.SendAlert(context.Background(), testNotification())
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestFunctionMailerEmptyBodySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := &functionMailer{url: srv.URL, client: srv.Client(), log: testLogger()}

	id, err := m.SendAlert(context.Background(), testNotification())
	require.NoError(t, err)
	require.Equal(t, "notify-"+testNotification().AlertID, id)
}

func TestNewSelectsTransport(t *testing.T) {
	t.Setenv("NOTIFY_FUNCTION_URL", "https://functions.example/notify")
	m := New(testLogger())
	_, ok := m.(*functionMailer)
	require.True(t, ok)

	t.Setenv("NOTIFY_FUNCTION_URL", "")
	m = New(testLogger())
	_, ok = m.(*smtpMailer)
	require.True(t, ok)
}
