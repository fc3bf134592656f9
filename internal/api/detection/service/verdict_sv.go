package detectionService

import (
	"MineGuard/internal/api/detection"
	"MineGuard/internal/entity"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

// Evaluate turns one raw detector response into a helmet verdict.
//
// An empty detector response is weak evidence, not certainty, so it never
// yields a zero-confidence result: frames with people but no helmet score
// 0.3, frames with nothing recognizable score 0.1.
func (s *detectionService) Evaluate(raw []entity.RawDetection, at time.Time) entity.Detection {
	var personCount, helmetCount int
	var maxHelmetScore float64

	boxes := make([]entity.BoundingBox, 0, len(raw))

	for _, item := range raw {
		isPerson := item.Label == "person"
		isHelmet := isHelmetLabel(item.Label)

		if isPerson {
			personCount++
		}
		if isHelmet {
			helmetCount++
			if item.Score > maxHelmetScore {
				maxHelmetScore = item.Score
			}
		}

		if isPerson || isHelmet {
			boxes = append(boxes, entity.BoundingBox{
				X:          item.Box.X,
				Y:          item.Box.Y,
				Width:      item.Box.Width,
				Height:     item.Box.Height,
				Confidence: item.Score,
				Label:      item.Label,
			})
		}
	}

	hasHelmet := personCount > 0 && helmetCount > 0

	confidence := entity.FallbackConfidenceEmpty
	if helmetCount > 0 {
		confidence = maxHelmetScore
	} else if personCount > 0 {
		confidence = entity.FallbackConfidencePersonOnly
	}

	return entity.Detection{
		HasHelmet:  hasHelmet,
		Confidence: confidence,
		Boxes:      boxes,
		CapturedAt: at,
	}
}

// Labels are matched as-is; the detector emits lowercase class names like
// "hardhat" and "helmet".
func isHelmetLabel(label string) bool {
	return strings.Contains(label, "hat") ||
		strings.Contains(label, "helmet") ||
		strings.Contains(label, "hardhat")
}

// ProcessFrame runs one frame through the detector and evaluates the
// result. A failed detector call surfaces as ErrClassifierUnavailable and
// never produces a fabricated verdict.
func (s *detectionService) ProcessFrame(ctx context.Context, sessionID string, location string, frame []byte) (entity.Detection, error) {
	raw, err := s.classifier.Detect(ctx, frame)
	if err != nil {
		s.metrics.ClassifierErrors.Add(1)
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Helmet detector call failed")
		return entity.Detection{}, detection.ErrClassifierUnavailable
	}

	capturedAt := time.Now()

	det := s.Evaluate(raw, capturedAt)

	id, err := s.utils.NewULIDFromTimestamp(capturedAt)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Failed to generate detection id")
		return entity.Detection{}, err
	}

	det.ID = id
	det.SessionID = sessionID
	det.Location = location

	s.metrics.Verdicts.Add(1)
	if det.IsViolation() {
		s.metrics.Violations.Add(1)
	}

	return det, nil
}
