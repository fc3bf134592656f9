package entity

import "time"

// ComplianceState is the process-local access signal for one monitored
// entry point. It is never persisted; a restart always comes back DENIED.
type ComplianceState struct {
	AccessGranted bool      `json:"access_granted"`
	LastVerdictAt time.Time `json:"last_verdict_at"`
}

type SessionCounters struct {
	FramesReceived   uint64 `json:"frames_received"`
	TicksSampled     uint64 `json:"ticks_sampled"`
	TicksIdle        uint64 `json:"ticks_idle"`
	Verdicts         uint64 `json:"verdicts"`
	Violations       uint64 `json:"violations"`
	ClassifierErrors uint64 `json:"classifier_errors"`
	StorageErrors    uint64 `json:"storage_errors"`
}

// MonitorSession is a snapshot of one running session.
type MonitorSession struct {
	ID         string          `json:"id"`
	Location   string          `json:"location"`
	IntervalMs int64           `json:"interval_ms"`
	State      ComplianceState `json:"state"`
	Counters   SessionCounters `json:"counters"`
	StartedAt  time.Time       `json:"started_at"`
}

type SessionEventType string

const (
	SessionEventVerdict  SessionEventType = "verdict"
	SessionEventGranted  SessionEventType = "access_granted"
	SessionEventDenied   SessionEventType = "access_denied"
	SessionEventDegraded SessionEventType = "degraded"
)

// SessionEvent is what session watchers receive over the WebSocket: every
// verdict, plus access edges and degraded-mode notices.
type SessionEvent struct {
	Type      SessionEventType `json:"type"`
	SessionID string           `json:"session_id"`
	Detection *Detection       `json:"detection,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	At        time.Time        `json:"at"`
}
