package detection

import "MineGuard/internal/entity"

type ListDetectionsRequest struct {
	SessionID string `query:"session_id"`
	Limit     int    `query:"limit" validate:"omitempty,min=1,max=200"`
	Offset    int    `query:"offset" validate:"omitempty,min=0"`
}

type ListDetectionsResponse struct {
	Data   []entity.Detection `json:"data"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

type DetectionResponse struct {
	Data entity.Detection `json:"data"`
}
