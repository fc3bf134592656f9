package detectionRepository

const (
	queryCreateDetection = `
INSERT INTO detections (id, session_id, location, has_helmet, confidence, bounding_boxes, snapshot_url, captured_at, created_at)
VALUES (:id, :session_id, :location, :has_helmet, :confidence, :bounding_boxes, :snapshot_url, :captured_at, :created_at)`

	queryGetDetectionById = `
SELECT id, session_id, location, has_helmet, confidence, bounding_boxes, snapshot_url, captured_at, created_at
FROM detections
    WHERE id = :id`

	queryListDetections = `
SELECT id, session_id, location, has_helmet, confidence, bounding_boxes, snapshot_url, captured_at, created_at
FROM detections
WHERE (:session_id = '' OR session_id = :session_id)
ORDER BY captured_at DESC
LIMIT :limit OFFSET :offset`

	queryCountDetections = `
SELECT COUNT(*)
FROM detections
WHERE (:session_id = '' OR session_id = :session_id)`
)
