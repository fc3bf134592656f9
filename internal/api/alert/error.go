package alert

import (
	"MineGuard/pkg/response"
	"net/http"
)

var (
	ErrAlertNotFound = response.NewError(http.StatusNotFound, "alert not found")

	// ErrDuplicateAlert means an alert row already exists for the detection.
	// Callers treat it as success, never as a failure.
	ErrDuplicateAlert = response.NewError(http.StatusConflict, "alert already exists for this detection")

	ErrEmailTransport = response.NewError(http.StatusBadGateway, "alert email could not be delivered")
	ErrPersistence    = response.NewError(http.StatusInternalServerError, "alert could not be stored")
)
