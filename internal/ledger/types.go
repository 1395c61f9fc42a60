package ledger

import "time"

// UsageEvent is a single model invocation's token cost.
// Events are immutable once recorded; TotalTokens is always InputTokens + OutputTokens.
type UsageEvent struct {
	ConversationID string    `json:"conversationId"`
	ModelID        string    `json:"modelId"`
	InputTokens    int64     `json:"inputTokens"`
	OutputTokens   int64     `json:"outputTokens"`
	TotalTokens    int64     `json:"totalTokens"`
	Timestamp      time.Time `json:"timestamp"`
}

// persistedLog is the on-store document layout.
type persistedLog struct {
	TokenUsageLog []UsageEvent `json:"tokenUsageLog"`
}

// ConversationAnalytics aggregates the events of one conversation.
type ConversationAnalytics struct {
	ConversationID string    `json:"conversationId"`
	MessageCount   int       `json:"messageCount"`
	InputTokens    int64     `json:"inputTokens"`
	OutputTokens   int64     `json:"outputTokens"`
	TotalTokens    int64     `json:"totalTokens"`
	ModelsUsed     []string  `json:"modelsUsed"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActiveAt   time.Time `json:"lastActiveAt"`
}

// ModelAnalytics aggregates the events produced by one model.
type ModelAnalytics struct {
	ModelID                 string    `json:"modelId"`
	ConversationCount       int       `json:"conversationCount"`
	MessageCount            int       `json:"messageCount"`
	TotalTokens             int64     `json:"totalTokens"`
	AverageTokensPerMessage float64   `json:"averageTokensPerMessage"`
	LastUsedAt              time.Time `json:"lastUsedAt"`
}

// OverallAnalytics aggregates the whole log.
type OverallAnalytics struct {
	TotalConversations             int     `json:"totalConversations"`
	TotalMessages                  int     `json:"totalMessages"`
	TotalInputTokens               int64   `json:"totalInputTokens"`
	TotalOutputTokens              int64   `json:"totalOutputTokens"`
	TotalTokens                    int64   `json:"totalTokens"`
	MostUsedModel                  string  `json:"mostUsedModel"`
	AverageMessagesPerConversation float64 `json:"averageMessagesPerConversation"`
	AverageTokensPerMessage        float64 `json:"averageTokensPerMessage"`
}

// DailyUsage is one calendar day of activity.
type DailyUsage struct {
	Date          string `json:"date"` // "2026-02-15"
	Conversations int    `json:"conversations"`
	Messages      int    `json:"messages"`
	Tokens        int64  `json:"tokens"`
}

// ModelShare is a model's slice of the total token volume.
type ModelShare struct {
	ModelID    string  `json:"modelId"`
	Tokens     int64   `json:"tokens"`
	Percentage float64 `json:"percentage"`
}

// Export is the JSON export document.
type Export struct {
	Overall    OverallAnalytics `json:"overall"`
	Daily      []DailyUsage     `json:"daily"`
	ByModel    []ModelShare     `json:"byModel"`
	RawData    []UsageEvent     `json:"rawData"`
	ExportedAt time.Time        `json:"exportedAt"`
}
