package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsViolation(t *testing.T) {
	require.True(t, Detection{HasHelmet: false, Confidence: 0.95}.IsViolation())
	require.True(t, Detection{HasHelmet: false, Confidence: 0.61}.IsViolation())

	// A compliant worker is never a violation, however confident.
	require.False(t, Detection{HasHelmet: true, Confidence: 0.99}.IsViolation())

	// The threshold is strict: exactly 0.6 is not actionable.
	require.False(t, Detection{HasHelmet: false, Confidence: 0.6}.IsViolation())
	require.False(t, Detection{HasHelmet: false, Confidence: 0.3}.IsViolation())
	require.False(t, Detection{HasHelmet: false, Confidence: 0.1}.IsViolation())
}
