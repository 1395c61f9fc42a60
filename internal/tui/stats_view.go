package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"tokenledger/internal/ledger"
)

var modelColumns = []table.Column{
	{Title: "Model", Width: 24},
	{Title: "Convs", Width: 6},
	{Title: "Msgs", Width: 6},
	{Title: "Tokens", Width: 12},
	{Title: "Avg/Msg", Width: 9},
	{Title: "Last Used", Width: 14},
}

func modelRows(models []ledger.ModelAnalytics) []table.Row {
	rows := make([]table.Row, 0, len(models))
	for _, m := range models {
		rows = append(rows, table.Row{
			truncate(m.ModelID, 24),
			fmt.Sprintf("%d", m.ConversationCount),
			fmt.Sprintf("%d", m.MessageCount),
			humanize.Comma(m.TotalTokens),
			fmt.Sprintf("%.1f", m.AverageTokensPerMessage),
			humanize.Time(m.LastUsedAt),
		})
	}
	return rows
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("tokenledger")
	if m.version != "" {
		title += dimStyle.Render(" " + m.version)
	}

	tab := func(label string, days int) string {
		if m.window == days {
			return activeTabStyle.Render(label)
		}
		return inactiveTabStyle.Render(label)
	}
	tabs := tab("7 days", weekWindow) + "  " + tab("30 days", monthWindow)

	status := ""
	switch {
	case m.loading:
		status = dimStyle.Render("loading...")
	case !m.loadedAt.IsZero():
		status = dimStyle.Render("updated " + m.loadedAt.Format("15:04:05"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, title, "   ", tabs, "   ", status)
}

func (m Model) renderBody() string {
	if m.overall.TotalMessages == 0 && !m.loading {
		return dimStyle.Render("No usage recorded yet.")
	}

	var b strings.Builder
	b.WriteString(renderOverall(m.overall))
	b.WriteString("\n\n")

	chartWidth := m.width - 6
	if chartWidth <= 0 {
		chartWidth = 80
	}
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Daily Tokens (last %d days):", m.window)))
	b.WriteString("\n")
	renderDailyChart(&b, m.daily, chartWidth, 6)
	b.WriteString("\n")

	if len(m.shares) > 0 {
		b.WriteString(sectionStyle.Render("Model Share:"))
		b.WriteString("\n")
		barWidth := min(chartWidth-50, 30)
		if barWidth < 10 {
			barWidth = 10
		}
		renderShares(&b, m.shares, barWidth, 8)
		b.WriteString("\n")
	}

	b.WriteString(sectionStyle.Render("Models:"))
	b.WriteString("\n")
	b.WriteString(m.models.View())
	return b.String()
}

func renderOverall(o ledger.OverallAnalytics) string {
	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-16s", label)) + valueStyle.Render(value)
	}
	most := o.MostUsedModel
	if most == "" {
		most = "-"
	}
	lines := []string{
		row("Conversations", humanize.Comma(int64(o.TotalConversations))),
		row("Messages", humanize.Comma(int64(o.TotalMessages))),
		row("Tokens", fmt.Sprintf("%s  %s", humanize.Comma(o.TotalTokens),
			dimStyle.Render(fmt.Sprintf("(%s in / %s out)", formatTokens(o.TotalInputTokens), formatTokens(o.TotalOutputTokens))))),
		row("Most used model", accentStyle.Render(most)),
		row("Avg msgs/conv", fmt.Sprintf("%.1f", o.AverageMessagesPerConversation)),
		row("Avg tokens/msg", fmt.Sprintf("%.1f", o.AverageTokensPerMessage)),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderShares(b *strings.Builder, shares []ledger.ModelShare, barWidth, maxEntries int) {
	if len(shares) > maxEntries {
		shares = shares[:maxEntries]
	}

	maxNameLen := 0
	for _, s := range shares {
		if len(s.ModelID) > maxNameLen {
			maxNameLen = len(s.ModelID)
		}
	}
	if maxNameLen > 24 {
		maxNameLen = 24
	}

	for _, s := range shares {
		filled := int(math.Round(float64(barWidth) * s.Percentage / 100))
		if filled < 0 {
			filled = 0
		}
		if filled > barWidth {
			filled = barWidth
		}
		bar := barFilledStyle.Render(strings.Repeat("█", filled)) +
			barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

		line := fmt.Sprintf("  %s  %-*s  %8s  %s",
			bar,
			maxNameLen, truncate(s.ModelID, maxNameLen),
			formatTokens(s.Tokens),
			dimStyle.Render(fmt.Sprintf("(%4.1f%%)", s.Percentage)))
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func renderDailyChart(b *strings.Builder, daily []ledger.DailyUsage, width, maxHeight int) {
	if len(daily) == 0 {
		return
	}

	var maxTokens int64
	for _, d := range daily {
		if d.Tokens > maxTokens {
			maxTokens = d.Tokens
		}
	}
	if maxTokens == 0 {
		b.WriteString(dimStyle.Render("  no tokens in this window"))
		b.WriteString("\n")
		return
	}

	yLabelWidth := len(formatTokens(maxTokens)) + 1
	barSpacing := 2
	maxBars := (width - yLabelWidth - 2) / barSpacing
	startIdx := 0
	if maxBars > 0 && len(daily) > maxBars {
		startIdx = len(daily) - maxBars
	}
	visible := daily[startIdx:]

	for row := maxHeight; row >= 1; row-- {
		threshold := float64(row) / float64(maxHeight)

		label := strings.Repeat(" ", yLabelWidth)
		switch row {
		case maxHeight:
			label = fmt.Sprintf("%*s ", yLabelWidth-1, formatTokens(maxTokens))
		case maxHeight / 2:
			label = fmt.Sprintf("%*s ", yLabelWidth-1, formatTokens(maxTokens/2))
		case 1:
			label = fmt.Sprintf("%*s ", yLabelWidth-1, "0")
		}
		line := dimStyle.Render(label)

		for _, d := range visible {
			ratio := float64(d.Tokens) / float64(maxTokens)
			if d.Tokens > 0 && ratio >= threshold {
				line += barFilledStyle.Render("█") + " "
			} else {
				line += "  "
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	first := shortDate(visible[0].Date)
	last := shortDate(visible[len(visible)-1].Date)
	gap := len(visible)*barSpacing - len(first) - len(last)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(strings.Repeat(" ", yLabelWidth) + dimStyle.Render(first+strings.Repeat(" ", gap)+last))
	b.WriteString("\n")
}

// Helper functions

func formatTokens(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}

func shortDate(dateStr string) string {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return dateStr
	}
	return t.Format("Jan 2")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
