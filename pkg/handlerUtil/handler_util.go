package handlerUtil

import (
	"MineGuard/internal/api/alert"
	"MineGuard/internal/api/detection"
	"MineGuard/internal/api/monitor"
	"MineGuard/pkg/log"
	"MineGuard/pkg/response"
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	var respErr *response.Error
	if errors.As(err, &respErr) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"code":       respErr.Code,
			"path":       path,
			"operation":  operation,
		}).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(fiber.Map{"error": err.Error()})
	}

	// Detection domain errors
	if errors.Is(err, detection.ErrClassifierUnavailable) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Helmet detector unavailable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"message": "Helmet detector is unavailable",
			"code":    "CLASSIFIER_UNAVAILABLE",
		})
	}

	if errors.Is(err, detection.ErrDetectionNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Detection not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Detection not found",
			"code":    "DETECTION_NOT_FOUND",
		})
	}

	if errors.Is(err, detection.ErrPersistence) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Error("Detection could not be stored")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Detection could not be stored",
			"code":    "DETECTION_STORE_FAILED",
		})
	}

	// Alert domain errors
	if errors.Is(err, alert.ErrAlertNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Alert not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Alert not found",
			"code":    "ALERT_NOT_FOUND",
		})
	}

	if errors.Is(err, alert.ErrEmailTransport) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Alert email delivery failed")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"message": "Alert email could not be delivered",
			"code":    "EMAIL_TRANSPORT_FAILED",
		})
	}

	if errors.Is(err, alert.ErrPersistence) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Error("Alert could not be stored")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Alert could not be stored",
			"code":    "ALERT_STORE_FAILED",
		})
	}

	// Monitor domain errors
	if errors.Is(err, monitor.ErrSessionNotFound) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Monitoring session not found")
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Monitoring session not found",
			"code":    "SESSION_NOT_FOUND",
		})
	}

	if errors.Is(err, monitor.ErrSessionAlreadyStopped) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Monitoring session already stopped")
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "Monitoring session already stopped",
			"code":    "SESSION_ALREADY_STOPPED",
		})
	}

	if errors.Is(err, monitor.ErrInvalidFrame) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Invalid frame")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid frame. Only JPEG and PNG images are accepted.",
		})
	}

	if errors.Is(err, monitor.ErrFrameTooLarge) {
		h.logger.WithFields(log.Fields{
			"request_id": requestID,
			"error":      err.Error(),
			"path":       path,
			"operation":  operation,
		}).Warn("Frame too large")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Frame too large. Maximum size is 5MB.",
		})
	}

	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "An unexpected error occurred",
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Validation failed: " + err.Error(),
		"code":  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(utils.StatusMessage(fiber.StatusRequestTimeout))
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
