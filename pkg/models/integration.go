package models

import "time"

// Integration log statuses
const (
	LogStatusPending = "Pending"
	LogStatusSuccess = "Success"
	LogStatusFailed  = "Failed"
)

// IntegrationLog records one inbound webhook payload and its processing outcome
type IntegrationLog struct {
	ID              string    `json:"id"`
	Status          string    `json:"status"`
	Data            string    `json:"data"`
	IntegrationID   string    `json:"integration_id,omitempty"`
	ResponseMessage string    `json:"response_message,omitempty"`
	Lead            string    `json:"lead,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IntegrationLogFilter narrows a log listing
type IntegrationLogFilter struct {
	Status string `query:"status" validate:"omitempty,oneof=Pending Success Failed"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=1000"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}

// FailLogRequest marks a log terminal so the sweep stops retrying it
type FailLogRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
}

// IntegrationSettings is the singleton holding external API credentials state
type IntegrationSettings struct {
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	TokenExpiry  *time.Time `json:"token_expiry,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// HasValidAccessToken reports whether the stored token can be used at now.
// A missing expiry counts as expired.
func (s *IntegrationSettings) HasValidAccessToken(now time.Time) bool {
	if s == nil || s.AccessToken == "" || s.TokenExpiry == nil {
		return false
	}
	return now.Before(*s.TokenExpiry)
}

// WebhookResponse is the body returned by the inbound webhook endpoint
type WebhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Webhook response statuses
const (
	WebhookStatusSuccess = "success"
	WebhookStatusSkipped = "skipped"
	WebhookStatusError   = "error"
)

// SweepResult summarises one pass over pending integration logs
type SweepResult struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Deferred  int `json:"deferred"`
}
