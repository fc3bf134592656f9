package entity

import "time"

// ComplianceConfidenceThreshold is the single confidence bar shared by the
// compliance state machine and the alert violation predicate.
const ComplianceConfidenceThreshold = 0.6

const (
	FallbackConfidencePersonOnly = 0.3
	FallbackConfidenceEmpty      = 0.1
)

// Box is the rectangle the detector reports for a single object.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RawDetection is one item of the detector response, before any verdict
// has been derived from it.
type RawDetection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Box   Box     `json:"box"`
}

type BoundingBox struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Label      string  `json:"label"`
}

// Detection is one evaluated frame. Rows are immutable once persisted.
type Detection struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"session_id"`
	Location    string        `json:"location"`
	HasHelmet   bool          `json:"has_helmet"`
	Confidence  float64       `json:"confidence"`
	Boxes       []BoundingBox `json:"boxes"`
	SnapshotURL string        `json:"snapshot_url,omitempty"`
	CapturedAt  time.Time     `json:"captured_at"`
	CreatedAt   time.Time     `json:"created_at"`
}

// IsViolation reports whether this detection must raise an alert: no helmet
// seen and the verdict confident enough to act on.
func (d Detection) IsViolation() bool {
	return !d.HasHelmet && d.Confidence > ComplianceConfidenceThreshold
}
