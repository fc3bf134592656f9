package monitorService

import (
	"testing"
	"time"

	"MineGuard/internal/entity"
	"github.com/stretchr/testify/require"
)

func verdict(hasHelmet bool, confidence float64) entity.Detection {
	return entity.Detection{
		HasHelmet:  hasHelmet,
		Confidence: confidence,
		CapturedAt: time.Now(),
	}
}

func TestComplianceStartsDenied(t *testing.T) {
	var cs compliance
	require.False(t, cs.State().AccessGranted)
}

func TestComplianceEmitsEdgesOnly(t *testing.T) {
	var cs compliance

	// Two passing verdicts followed by a failing one: one grant, one revoke,
	// nothing for the repeat.
	edge, changed := cs.Apply(verdict(true, 0.9))
	require.True(t, changed)
	require.Equal(t, entity.SessionEventGranted, edge)

	_, changed = cs.Apply(verdict(true, 0.9))
	require.False(t, changed)

	edge, changed = cs.Apply(verdict(false, 0.9))
	require.True(t, changed)
	require.Equal(t, entity.SessionEventDenied, edge)
	require.False(t, cs.State().AccessGranted)
}

func TestComplianceFailingVerdictKeepsDenied(t *testing.T) {
	var cs compliance

	_, changed := cs.Apply(verdict(false, 0.95))
	require.False(t, changed)
	require.False(t, cs.State().AccessGranted)
}

func TestComplianceThresholdIsStrict(t *testing.T) {
	var cs compliance

	// Exactly at the threshold is not enough to grant.
	_, changed := cs.Apply(verdict(true, entity.ComplianceConfidenceThreshold))
	require.False(t, changed)
	require.False(t, cs.State().AccessGranted)

	_, changed = cs.Apply(verdict(true, 0.61))
	require.True(t, changed)
	require.True(t, cs.State().AccessGranted)
}

func TestComplianceWeakHelmetVerdictRevokes(t *testing.T) {
	var cs compliance

	cs.Apply(verdict(true, 0.9))
	require.True(t, cs.State().AccessGranted)

	// A helmet the detector is unsure about fails closed.
	edge, changed := cs.Apply(verdict(true, 0.3))
	require.True(t, changed)
	require.Equal(t, entity.SessionEventDenied, edge)
}

func TestComplianceTracksVerdictTime(t *testing.T) {
	var cs compliance

	at := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	cs.Apply(entity.Detection{HasHelmet: false, Confidence: 0.1, CapturedAt: at})

	// The timestamp moves on every verdict, edge or not.
	require.Equal(t, at, cs.State().LastVerdictAt)
}
