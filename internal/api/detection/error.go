package detection

import (
	"MineGuard/pkg/response"
	"net/http"
)

var (
	ErrClassifierUnavailable = response.NewError(http.StatusServiceUnavailable, "helmet detector unavailable")
	ErrDetectionNotFound     = response.NewError(http.StatusNotFound, "detection not found")
	ErrPersistence           = response.NewError(http.StatusInternalServerError, "detection could not be stored")
	ErrBadRequest            = response.NewError(http.StatusBadRequest, "bad request")
)
