package monitorService

import (
	"MineGuard/internal/entity"
	"time"
)

// compliance is the per-session access state machine. It starts DENIED, so
// a session that never produces a passing verdict never grants access.
type compliance struct {
	granted       bool
	lastVerdictAt time.Time
}

// Apply feeds one verdict through the machine and reports an event type
// only when the access state actually flips.
func (cs *compliance) Apply(det entity.Detection) (entity.SessionEventType, bool) {
	cs.lastVerdictAt = det.CapturedAt

	granted := det.HasHelmet && det.Confidence > entity.ComplianceConfidenceThreshold
	if granted == cs.granted {
		return "", false
	}

	cs.granted = granted
	if granted {
		return entity.SessionEventGranted, true
	}
	return entity.SessionEventDenied, true
}

func (cs *compliance) State() entity.ComplianceState {
	return entity.ComplianceState{
		AccessGranted: cs.granted,
		LastVerdictAt: cs.lastVerdictAt,
	}
}
