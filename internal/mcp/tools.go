package mcpserver

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"tokenledger/internal/ledger"
)

const (
	defaultDailyDays = 7
	maxDailyDays     = 366
)

type usageTools struct {
	ledger *ledger.Ledger
}

// registerUsageTools registers the usage ledger tools.
func registerUsageTools(server *mcpsdk.Server, t *usageTools) {
	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "usage_record",
		Description: "Record token usage for one completed model response in a conversation",
	}, t.record)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "usage_overall",
		Description: "Get overall token usage totals across all conversations and models",
	}, t.overall)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "usage_conversation",
		Description: "Get token usage analytics for a single conversation",
	}, t.conversation)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "usage_model",
		Description: "Get token usage analytics for a single model",
	}, t.model)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "usage_daily",
		Description: "Get per-day usage for the last N days (default 7), oldest first",
	}, t.daily)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "usage_share",
		Description: "Get each model's share of total tokens, largest first",
	}, t.share)

	mcpsdk.AddTool(server, &mcpsdk.Tool{
		Name:        "usage_export",
		Description: "Export the usage ledger as JSON or CSV text",
	}, t.export)
}

// Timestamps are rendered as RFC 3339 strings in tool output.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// usage_record

type recordInput struct {
	ConversationID string `json:"conversationId" jsonschema:"Conversation identifier"`
	ModelID        string `json:"modelId" jsonschema:"Model identifier"`
	InputTokens    int64  `json:"inputTokens" jsonschema:"Prompt tokens consumed (negative values are recorded as 0)"`
	OutputTokens   int64  `json:"outputTokens" jsonschema:"Completion tokens produced (negative values are recorded as 0)"`
}

type eventOutput struct {
	ConversationID string `json:"conversationId"`
	ModelID        string `json:"modelId"`
	InputTokens    int64  `json:"inputTokens"`
	OutputTokens   int64  `json:"outputTokens"`
	TotalTokens    int64  `json:"totalTokens"`
	Timestamp      string `json:"timestamp"`
}

func (t *usageTools) record(ctx context.Context, req *mcpsdk.CallToolRequest, input recordInput) (*mcpsdk.CallToolResult, eventOutput, error) {
	if input.ConversationID == "" {
		return nil, eventOutput{}, fmt.Errorf("conversationId is required")
	}
	if input.ModelID == "" {
		return nil, eventOutput{}, fmt.Errorf("modelId is required")
	}

	ev := t.ledger.Record(input.ConversationID, input.ModelID, input.InputTokens, input.OutputTokens)
	return nil, eventOutput{
		ConversationID: ev.ConversationID,
		ModelID:        ev.ModelID,
		InputTokens:    ev.InputTokens,
		OutputTokens:   ev.OutputTokens,
		TotalTokens:    ev.TotalTokens,
		Timestamp:      formatTime(ev.Timestamp),
	}, nil
}

// usage_overall

type overallInput struct{}

func (t *usageTools) overall(ctx context.Context, req *mcpsdk.CallToolRequest, input overallInput) (*mcpsdk.CallToolResult, ledger.OverallAnalytics, error) {
	return nil, t.ledger.Overall(), nil
}

// usage_conversation

type conversationInput struct {
	ConversationID string `json:"conversationId" jsonschema:"Conversation identifier"`
}

type conversationOutput struct {
	ConversationID string   `json:"conversationId"`
	MessageCount   int      `json:"messageCount"`
	InputTokens    int64    `json:"inputTokens"`
	OutputTokens   int64    `json:"outputTokens"`
	TotalTokens    int64    `json:"totalTokens"`
	ModelsUsed     []string `json:"modelsUsed"`
	CreatedAt      string   `json:"createdAt"`
	LastActiveAt   string   `json:"lastActiveAt"`
}

func (t *usageTools) conversation(ctx context.Context, req *mcpsdk.CallToolRequest, input conversationInput) (*mcpsdk.CallToolResult, conversationOutput, error) {
	c, ok := t.ledger.Conversation(input.ConversationID)
	if !ok {
		return nil, conversationOutput{}, fmt.Errorf("no usage recorded for conversation %q", input.ConversationID)
	}
	return nil, conversationOutput{
		ConversationID: c.ConversationID,
		MessageCount:   c.MessageCount,
		InputTokens:    c.InputTokens,
		OutputTokens:   c.OutputTokens,
		TotalTokens:    c.TotalTokens,
		ModelsUsed:     c.ModelsUsed,
		CreatedAt:      formatTime(c.CreatedAt),
		LastActiveAt:   formatTime(c.LastActiveAt),
	}, nil
}

// usage_model

type modelInput struct {
	ModelID string `json:"modelId" jsonschema:"Model identifier"`
}

type modelOutput struct {
	ModelID                 string  `json:"modelId"`
	ConversationCount       int     `json:"conversationCount"`
	MessageCount            int     `json:"messageCount"`
	TotalTokens             int64   `json:"totalTokens"`
	AverageTokensPerMessage float64 `json:"averageTokensPerMessage"`
	LastUsedAt              string  `json:"lastUsedAt"`
}

func (t *usageTools) model(ctx context.Context, req *mcpsdk.CallToolRequest, input modelInput) (*mcpsdk.CallToolResult, modelOutput, error) {
	m, ok := t.ledger.Model(input.ModelID)
	if !ok {
		return nil, modelOutput{}, fmt.Errorf("no usage recorded for model %q", input.ModelID)
	}
	return nil, modelOutput{
		ModelID:                 m.ModelID,
		ConversationCount:       m.ConversationCount,
		MessageCount:            m.MessageCount,
		TotalTokens:             m.TotalTokens,
		AverageTokensPerMessage: m.AverageTokensPerMessage,
		LastUsedAt:              formatTime(m.LastUsedAt),
	}, nil
}

// usage_daily

type dailyInput struct {
	Days int `json:"days,omitempty" jsonschema:"Number of days ending today, 1-366 (default: 7)"`
}

type dailyOutput struct {
	Days  int                 `json:"days"`
	Daily []ledger.DailyUsage `json:"daily"`
}

func (t *usageTools) daily(ctx context.Context, req *mcpsdk.CallToolRequest, input dailyInput) (*mcpsdk.CallToolResult, dailyOutput, error) {
	days := input.Days
	if days == 0 {
		days = defaultDailyDays
	}
	if days < 1 || days > maxDailyDays {
		return nil, dailyOutput{}, fmt.Errorf("days must be between 1 and %d", maxDailyDays)
	}
	return nil, dailyOutput{Days: days, Daily: t.ledger.Daily(days)}, nil
}

// usage_share

type shareInput struct{}

type shareOutput struct {
	Models []ledger.ModelShare `json:"models"`
}

func (t *usageTools) share(ctx context.Context, req *mcpsdk.CallToolRequest, input shareInput) (*mcpsdk.CallToolResult, shareOutput, error) {
	return nil, shareOutput{Models: t.ledger.ModelShares()}, nil
}

// usage_export

type exportInput struct {
	Format string `json:"format,omitempty" jsonschema:"Export format: json or csv (default: json)"`
}

type exportOutput struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

func (t *usageTools) export(ctx context.Context, req *mcpsdk.CallToolRequest, input exportInput) (*mcpsdk.CallToolResult, exportOutput, error) {
	format := input.Format
	if format == "" {
		format = "json"
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case "json":
		data, err = t.ledger.ExportJSON()
	case "csv":
		data, err = t.ledger.ExportCSV()
	default:
		return nil, exportOutput{}, fmt.Errorf("unsupported format %q (expected json or csv)", format)
	}
	if err != nil {
		return nil, exportOutput{}, fmt.Errorf("export failed: %w", err)
	}
	return nil, exportOutput{Format: format, Content: string(data)}, nil
}
