package detectionService

import (
	"testing"
	"time"

	"MineGuard/internal/entity"
	"github.com/stretchr/testify/require"
)

func evaluate(raw []entity.RawDetection) entity.Detection {
	s := &detectionService{}
	return s.Evaluate(raw, time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC))
}

func TestEvaluateCompliantWorker(t *testing.T) {
	det := evaluate([]entity.RawDetection{
		{Label: "person", Score: 0.95, Box: entity.Box{X: 10, Y: 20, Width: 100, Height: 200}},
		{Label: "hardhat", Score: 0.85, Box: entity.Box{X: 15, Y: 20, Width: 40, Height: 30}},
	})

	require.True(t, det.HasHelmet)
	require.Equal(t, 0.85, det.Confidence)
	require.Len(t, det.Boxes, 2)
	require.Equal(t, "person", det.Boxes[0].Label)
	require.Equal(t, "hardhat", det.Boxes[1].Label)
	require.False(t, det.IsViolation())
}

func TestEvaluatePersonWithoutHelmet(t *testing.T) {
	det := evaluate([]entity.RawDetection{
		{Label: "person", Score: 0.9},
	})

	require.False(t, det.HasHelmet)
	require.Equal(t, entity.FallbackConfidencePersonOnly, det.Confidence)
	require.Len(t, det.Boxes, 1)

	// Person-only confidence sits below the threshold, so an empty-looking
	// frame never triggers an alert on its own.
	require.False(t, det.IsViolation())
}

func TestEvaluateEmptyFrame(t *testing.T) {
	det := evaluate(nil)

	require.False(t, det.HasHelmet)
	require.Equal(t, entity.FallbackConfidenceEmpty, det.Confidence)
	require.Empty(t, det.Boxes)
}

func TestEvaluateHelmetWithoutPerson(t *testing.T) {
	// A helmet on a shelf is not a compliant worker.
	det := evaluate([]entity.RawDetection{
		{Label: "hardhat", Score: 0.8},
	})

	require.False(t, det.HasHelmet)
	require.Equal(t, 0.8, det.Confidence)
}

func TestEvaluatePicksHighestHelmetScore(t *testing.T) {
	det := evaluate([]entity.RawDetection{
		{Label: "person", Score: 0.8},
		{Label: "helmet", Score: 0.7},
		{Label: "hardhat", Score: 0.92},
	})

	require.True(t, det.HasHelmet)
	require.Equal(t, 0.92, det.Confidence)
	require.Len(t, det.Boxes, 3)
}

func TestEvaluateIgnoresUnrelatedLabels(t *testing.T) {
	det := evaluate([]entity.RawDetection{
		{Label: "truck", Score: 0.99},
		{Label: "person", Score: 0.9},
		{Label: "rock", Score: 0.95},
	})

	require.False(t, det.HasHelmet)
	require.Equal(t, entity.FallbackConfidencePersonOnly, det.Confidence)
	require.Len(t, det.Boxes, 1)
	require.Equal(t, "person", det.Boxes[0].Label)
}

func TestEvaluateLabelMatching(t *testing.T) {
	// Label matching is case-sensitive; the detector emits lowercase names.
	det := evaluate([]entity.RawDetection{
		{Label: "Person", Score: 0.9},
		{Label: "HARDHAT", Score: 0.9},
	})
	require.False(t, det.HasHelmet)
	require.Equal(t, entity.FallbackConfidenceEmpty, det.Confidence)
	require.Empty(t, det.Boxes)

	// Substring match catches detector variants like "safety hat".
	det = evaluate([]entity.RawDetection{
		{Label: "person", Score: 0.9},
		{Label: "safety hat", Score: 0.7},
	})
	require.True(t, det.HasHelmet)
	require.Equal(t, 0.7, det.Confidence)
}

func TestEvaluateStampsCaptureTime(t *testing.T) {
	at := time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	s := &detectionService{}
	det := s.Evaluate(nil, at)
	require.Equal(t, at, det.CapturedAt)
}
