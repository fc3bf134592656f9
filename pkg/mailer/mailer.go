package mailer

import (
	"MineGuard/internal/entity"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	smtpPkg "net/smtp"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ItfMailer delivers one alert notification and returns the transport's
// message id. Delivery is attempted exactly once per call; retries are the
// caller's decision.
type ItfMailer interface {
	SendAlert(ctx context.Context, payload entity.AlertNotification) (string, error)
}

// New selects the transport from the environment: a hosted notify function
// when NOTIFY_FUNCTION_URL is set, plain SMTP otherwise.
func New(logger *logrus.Logger) ItfMailer {
	if url := os.Getenv("NOTIFY_FUNCTION_URL"); url != "" {
		logger.Info("Mailer using notify function transport")
		return &functionMailer{
			url: url,
			key: os.Getenv("NOTIFY_FUNCTION_KEY"),
			client: &http.Client{
				Timeout: 10 * time.Second,
			},
			log: logger,
		}
	}

	host := os.Getenv("SMTP_HOST")
	if host == "" {
		host = "smtp.gmail.com"
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}

	mail := os.Getenv("SMTP_MAIL")
	password := os.Getenv("SMTP_PASSWORD")
	auth := smtpPkg.PlainAuth("", mail, password, host)

	logger.Info("Mailer using SMTP transport")
	return &smtpMailer{auth: auth, mail: mail, host: host, port: port, log: logger}
}

type functionMailer struct {
	url    string
	key    string
	client *http.Client
	log    *logrus.Logger
}

func (m *functionMailer) SendAlert(ctx context.Context, payload entity.AlertNotification) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if m.key != "" {
		req.Header.Set("Authorization", "Bearer "+m.key)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("notify function request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("notify function returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &result); err != nil || result.ID == "" {
		// Some deployments answer with an empty body on success.
		result.ID = "notify-" + payload.AlertID
	}

	m.log.WithFields(logrus.Fields{
		"alert_id":   payload.AlertID,
		"message_id": result.ID,
	}).Info("Alert email dispatched via notify function")

	return result.ID, nil
}

type smtpMailer struct {
	auth smtpPkg.Auth
	mail string
	host string
	port string
	log  *logrus.Logger
}

func (m *smtpMailer) SendAlert(ctx context.Context, payload entity.AlertNotification) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if m.mail == "" {
		return "", fmt.Errorf("smtp transport not configured, SMTP_MAIL is empty")
	}

	messageID := fmt.Sprintf("<%s@mineguard>", uuid.NewString())
	subject := fmt.Sprintf("[MineGuard] %s: helmet violation at %s", strings.ToUpper(string(payload.Severity)), payload.Location)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.mail)
	fmt.Fprintf(&b, "To: %s\r\n", payload.WorkerEmail)
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "<h2>Safety Alert</h2><p>%s</p>", payload.AlertMessage)
	fmt.Fprintf(&b, "<p>Severity: <strong>%s</strong><br>Location: %s<br>Time: %s<br>Alert ID: %s</p>",
		payload.Severity, payload.Location, payload.Timestamp.Format(time.RFC1123), payload.AlertID)

	to := []string{payload.WorkerEmail}
	if err := smtpPkg.SendMail(m.host+":"+m.port, m.auth, m.mail, to, []byte(b.String())); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"alert_id":   payload.AlertID,
		"message_id": messageID,
	}).Info("Alert email dispatched via SMTP")

	return messageID, nil
}
