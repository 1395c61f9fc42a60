package commands

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"tokenledger/internal/ledger"
	"tokenledger/internal/output"
	"tokenledger/internal/ui"
)

// RunStatsOverall displays totals across the whole log.
func RunStatsOverall(l *ledger.Ledger) {
	o := l.Overall()
	output.Print(o, func() {
		printOverallText(o)
	})
}

// RunStatsConversation displays one conversation's analytics.
func RunStatsConversation(l *ledger.Ledger, id string) error {
	c, ok := l.Conversation(id)
	if !ok {
		return fmt.Errorf("conversation %q: %w", id, errNotFound)
	}

	output.Print(c, func() {
		ui.ShowHeader("Conversation " + c.ConversationID)
		ui.ShowField("Messages", "%d", c.MessageCount)
		ui.ShowField("Tokens", "%s (%s in / %s out)",
			formatTokens(c.TotalTokens), formatTokens(c.InputTokens), formatTokens(c.OutputTokens))
		ui.ShowField("Models", "%s", strings.Join(c.ModelsUsed, ", "))
		ui.ShowField("Started", "%s", formatWhen(c.CreatedAt))
		ui.ShowField("Last active", "%s", formatWhen(c.LastActiveAt))
	})
	return nil
}

// RunStatsConversations lists every conversation, most recently active first.
func RunStatsConversations(l *ledger.Ledger) {
	convs := l.Conversations()
	output.Print(convs, func() {
		if len(convs) == 0 {
			ui.ShowInfo("No usage recorded yet")
			return
		}
		ui.ShowHeader("Conversations")
		for _, c := range convs {
			fmt.Fprintf(ui.Out, "  %-38s %5d msgs  %12s tokens  %s\n",
				c.ConversationID, c.MessageCount, formatTokens(c.TotalTokens), humanize.Time(c.LastActiveAt))
		}
	})
}

// RunStatsModel displays one model's analytics.
func RunStatsModel(l *ledger.Ledger, id string) error {
	m, ok := l.Model(id)
	if !ok {
		return fmt.Errorf("model %q: %w", id, errNotFound)
	}

	output.Print(m, func() {
		ui.ShowHeader("Model " + m.ModelID)
		ui.ShowField("Conversations", "%d", m.ConversationCount)
		ui.ShowField("Messages", "%d", m.MessageCount)
		ui.ShowField("Tokens", "%s", formatTokens(m.TotalTokens))
		ui.ShowField("Avg tokens/msg", "%.1f", m.AverageTokensPerMessage)
		ui.ShowField("Last used", "%s", formatWhen(m.LastUsedAt))
	})
	return nil
}

// RunStatsModels lists every model, most recently used first.
func RunStatsModels(l *ledger.Ledger) {
	models := l.Models()
	output.Print(models, func() {
		if len(models) == 0 {
			ui.ShowInfo("No usage recorded yet")
			return
		}
		ui.ShowHeader("Models")
		for _, m := range models {
			fmt.Fprintf(ui.Out, "  %-28s %5d convs  %6d msgs  %12s tokens  %s\n",
				m.ModelID, m.ConversationCount, m.MessageCount, formatTokens(m.TotalTokens), humanize.Time(m.LastUsedAt))
		}
	})
}

// RunStatsDaily displays per-day usage for the last days days.
func RunStatsDaily(l *ledger.Ledger, days int) error {
	if days < 1 || days > 366 {
		return fmt.Errorf("--days must be between 1 and 366, got %d", days)
	}
	daily := l.Daily(days)

	output.Print(daily, func() {
		ui.ShowHeader(fmt.Sprintf("Daily usage (last %d days)", days))
		var maxTokens int64
		for _, d := range daily {
			maxTokens = max(maxTokens, d.Tokens)
		}
		for _, d := range daily {
			fmt.Fprintf(ui.Out, "  %s  %s %12s  %3d convs  %4d msgs\n",
				d.Date, bar(d.Tokens, maxTokens, 20), formatTokens(d.Tokens), d.Conversations, d.Messages)
		}
	})
	return nil
}

// RunStatsShare displays each model's share of all tokens.
func RunStatsShare(l *ledger.Ledger) {
	shares := l.ModelShares()
	output.Print(shares, func() {
		if len(shares) == 0 {
			ui.ShowInfo("No usage recorded yet")
			return
		}
		ui.ShowHeader("Model share")
		for _, s := range shares {
			fmt.Fprintf(ui.Out, "  %-28s %s %12s  %5.1f%%\n",
				s.ModelID, bar(int64(math.Round(s.Percentage)), 100, 20), formatTokens(s.Tokens), s.Percentage)
		}
	})
}

// --- Helper functions ---

func printOverallText(o ledger.OverallAnalytics) {
	ui.ShowHeader("Token usage")
	if o.TotalMessages == 0 {
		ui.ShowInfo("No usage recorded yet")
		return
	}
	most := o.MostUsedModel
	if most == "" {
		most = "-"
	}
	ui.ShowField("Conversations", "%s", humanize.Comma(int64(o.TotalConversations)))
	ui.ShowField("Messages", "%s", humanize.Comma(int64(o.TotalMessages)))
	ui.ShowField("Input tokens", "%s", formatTokens(o.TotalInputTokens))
	ui.ShowField("Output tokens", "%s", formatTokens(o.TotalOutputTokens))
	ui.ShowField("Total tokens", "%s", formatTokens(o.TotalTokens))
	ui.ShowField("Most used model", "%s", most)
	ui.ShowField("Avg msgs/conv", "%.1f", o.AverageMessagesPerConversation)
	ui.ShowField("Avg tokens/msg", "%.1f", o.AverageTokensPerMessage)
}

// formatTokens adds thousand separators.
func formatTokens(n int64) string {
	return humanize.Comma(n)
}

func formatWhen(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.Local().Format("2006-01-02 15:04"), humanize.Time(t))
}

func bar(v, maxV int64, width int) string {
	filled := 0
	if maxV > 0 {
		filled = int(math.Round(float64(width) * float64(v) / float64(maxV)))
	}
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
