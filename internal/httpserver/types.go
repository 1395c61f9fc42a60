package httpserver

import "tokenledger/internal/ledger"

// RecordUsageRequest represents the body of POST /usage
type RecordUsageRequest struct {
	ConversationID string `json:"conversationId"`
	ModelID        string `json:"modelId"`
	InputTokens    int64  `json:"inputTokens"`
	OutputTokens   int64  `json:"outputTokens"`
}

// ClearResponse represents the DELETE /usage response
type ClearResponse struct {
	Cleared bool `json:"cleared"`
}

// ConversationListResponse represents GET /stats/conversations
type ConversationListResponse struct {
	Conversations []ledger.ConversationAnalytics `json:"conversations"`
}

// ModelListResponse represents GET /stats/models
type ModelListResponse struct {
	Models []ledger.ModelAnalytics `json:"models"`
}

// DailyResponse represents GET /stats/daily
type DailyResponse struct {
	Days  int                 `json:"days"`
	Daily []ledger.DailyUsage `json:"daily"`
}

// ShareResponse represents GET /stats/share
type ShareResponse struct {
	Models []ledger.ModelShare `json:"models"`
}

// FeedMessage is one frame pushed to /ws subscribers.
type FeedMessage struct {
	Type   string             `json:"type"` // "recorded" or "cleared"
	Event  *ledger.UsageEvent `json:"event,omitempty"`
	LogLen int                `json:"logLength"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Events  int    `json:"events"`
}
