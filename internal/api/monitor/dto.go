package monitor

import "MineGuard/internal/entity"

type StartSessionRequest struct {
	Location   string `json:"location" validate:"omitempty,max=128"`
	IntervalMs int    `json:"interval_ms" validate:"omitempty,min=200,max=60000"`
}

type SessionResponse struct {
	Data entity.MonitorSession `json:"data"`
}

type StopSessionResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}
