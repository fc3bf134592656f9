package alert

import "MineGuard/internal/entity"

type ListAlertsRequest struct {
	Acknowledged string `query:"acknowledged" validate:"omitempty,oneof=true false"`
	Severity     string `query:"severity" validate:"omitempty,oneof=low medium high critical"`
	Limit        int    `query:"limit" validate:"omitempty,min=1,max=200"`
	Offset       int    `query:"offset" validate:"omitempty,min=0"`
}

type ListAlertsResponse struct {
	Data   []entity.Alert `json:"data"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type AlertResponse struct {
	Data entity.Alert `json:"data"`
}

type RedeliverResponse struct {
	AlertsCreated int `json:"alerts_created"`
	EmailsSent    int `json:"emails_sent"`
}

type StatsResponse struct {
	Data entity.AlertStats `json:"data"`
}
