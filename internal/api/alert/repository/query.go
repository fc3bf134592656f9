package alertRepository

const (
	queryCreateAlert = `
INSERT INTO alerts (id, detection_id, alert_type, message, severity, location, email_sent, acknowledged, created_at, updated_at)
VALUES (:id, :detection_id, :alert_type, :message, :severity, :location, :email_sent, :acknowledged, :created_at, :updated_at)
ON CONFLICT (detection_id) DO NOTHING`

	queryGetAlertById = `
SELECT id, detection_id, alert_type, message, severity, location, email_sent, acknowledged, created_at, updated_at
FROM alerts
    WHERE id = :id`

	queryMarkEmailSent = `
UPDATE alerts
SET email_sent = TRUE, updated_at = :updated_at
WHERE id = :id AND email_sent = FALSE`

	queryAcknowledgeAlert = `
UPDATE alerts
SET acknowledged = TRUE, updated_at = :updated_at
WHERE id = :id AND acknowledged = FALSE`

	queryListAlerts = `
SELECT id, detection_id, alert_type, message, severity, location, email_sent, acknowledged, created_at, updated_at
FROM alerts
WHERE (:acknowledged = '' OR acknowledged::text = :acknowledged)
  AND (:severity = '' OR severity = :severity)
ORDER BY created_at DESC
LIMIT :limit OFFSET :offset`

	queryCountAlerts = `
SELECT COUNT(*)
FROM alerts
WHERE (:acknowledged = '' OR acknowledged::text = :acknowledged)
  AND (:severity = '' OR severity = :severity)`

	queryAlertStats = `
SELECT COUNT(*)                                        AS total,
       COUNT(*) FILTER (WHERE acknowledged = FALSE)    AS unread,
       COUNT(*) FILTER (WHERE acknowledged = TRUE)     AS acknowledged,
       COUNT(*) FILTER (WHERE email_sent = TRUE)       AS emails_sent,
       COUNT(*) FILTER (WHERE severity = 'low')        AS low,
       COUNT(*) FILTER (WHERE severity = 'medium')     AS medium,
       COUNT(*) FILTER (WHERE severity = 'high')       AS high,
       COUNT(*) FILTER (WHERE severity = 'critical')   AS critical
FROM alerts`

	queryListUnsentCritical = `
SELECT id, detection_id, alert_type, message, severity, location, email_sent, acknowledged, created_at, updated_at
FROM alerts
WHERE severity = 'critical' AND email_sent = FALSE
ORDER BY created_at ASC
LIMIT :limit`

	queryListUnalertedViolations = `
SELECT d.id, d.session_id, d.location, d.has_helmet, d.confidence, d.captured_at
FROM detections d
LEFT JOIN alerts a ON a.detection_id = d.id
WHERE a.id IS NULL
  AND d.has_helmet = FALSE
  AND d.confidence > :threshold
ORDER BY d.captured_at ASC
LIMIT :limit`
)
