package monitor

import (
	"MineGuard/pkg/response"
	"net/http"
)

var (
	ErrSessionNotFound       = response.NewError(http.StatusNotFound, "monitoring session not found")
	ErrSessionAlreadyStopped = response.NewError(http.StatusConflict, "monitoring session already stopped")
	ErrInvalidFrame          = response.NewError(http.StatusBadRequest, "frame is not a decodable image")
	ErrFrameTooLarge         = response.NewError(http.StatusBadRequest, "frame exceeds the size limit")
)
