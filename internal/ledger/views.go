package ledger

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// Conversation returns analytics for one conversation, or false if the
// conversation has no events.
func (l *Ledger) Conversation(conversationID string) (ConversationAnalytics, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matches []UsageEvent
	for _, ev := range l.events {
		if ev.ConversationID == conversationID {
			matches = append(matches, ev)
		}
	}
	if len(matches) == 0 {
		return ConversationAnalytics{}, false
	}
	return conversationFrom(conversationID, matches), true
}

// Conversations returns analytics for every conversation, most recently
// active first.
func (l *Ledger) Conversations() []ConversationAnalytics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var order []string
	grouped := make(map[string][]UsageEvent)
	for _, ev := range l.events {
		if _, ok := grouped[ev.ConversationID]; !ok {
			order = append(order, ev.ConversationID)
		}
		grouped[ev.ConversationID] = append(grouped[ev.ConversationID], ev)
	}

	result := make([]ConversationAnalytics, 0, len(order))
	for _, id := range order {
		result = append(result, conversationFrom(id, grouped[id]))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastActiveAt.After(result[j].LastActiveAt)
	})
	return result
}

func conversationFrom(id string, matches []UsageEvent) ConversationAnalytics {
	// The log is in insertion order, which is not necessarily chronological.
	sorted := make([]UsageEvent, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	ca := ConversationAnalytics{
		ConversationID: id,
		MessageCount:   len(sorted),
		CreatedAt:      sorted[0].Timestamp,
		LastActiveAt:   sorted[len(sorted)-1].Timestamp,
	}
	seen := make(map[string]bool)
	for _, ev := range matches {
		ca.InputTokens += ev.InputTokens
		ca.OutputTokens += ev.OutputTokens
		ca.TotalTokens += ev.TotalTokens
		if !seen[ev.ModelID] {
			seen[ev.ModelID] = true
			ca.ModelsUsed = append(ca.ModelsUsed, ev.ModelID)
		}
	}
	return ca
}

// Model returns analytics for one model, or false if the model has no events.
func (l *Ledger) Model(modelID string) (ModelAnalytics, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var matches []UsageEvent
	for _, ev := range l.events {
		if ev.ModelID == modelID {
			matches = append(matches, ev)
		}
	}
	if len(matches) == 0 {
		return ModelAnalytics{}, false
	}
	return modelFrom(modelID, matches), true
}

// Models returns analytics for every model, most recently used first.
func (l *Ledger) Models() []ModelAnalytics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var order []string
	grouped := make(map[string][]UsageEvent)
	for _, ev := range l.events {
		if _, ok := grouped[ev.ModelID]; !ok {
			order = append(order, ev.ModelID)
		}
		grouped[ev.ModelID] = append(grouped[ev.ModelID], ev)
	}

	result := make([]ModelAnalytics, 0, len(order))
	for _, id := range order {
		result = append(result, modelFrom(id, grouped[id]))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].LastUsedAt.After(result[j].LastUsedAt)
	})
	return result
}

func modelFrom(id string, matches []UsageEvent) ModelAnalytics {
	ma := ModelAnalytics{ModelID: id, MessageCount: len(matches)}
	conversations := make(map[string]struct{})
	for _, ev := range matches {
		conversations[ev.ConversationID] = struct{}{}
		ma.TotalTokens += ev.TotalTokens
		if ev.Timestamp.After(ma.LastUsedAt) {
			ma.LastUsedAt = ev.Timestamp
		}
	}
	ma.ConversationCount = len(conversations)
	if ma.MessageCount > 0 {
		ma.AverageTokensPerMessage = float64(ma.TotalTokens) / float64(ma.MessageCount)
	}
	return ma
}

// Overall returns aggregate analytics across the whole log. An empty log
// yields the zero value with an empty MostUsedModel.
func (l *Ledger) Overall() OverallAnalytics {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return overallFrom(l.events)
}

func overallFrom(events []UsageEvent) OverallAnalytics {
	var oa OverallAnalytics
	conversations := make(map[string]struct{})
	modelCounts := make(map[string]int)
	best := 0

	for _, ev := range events {
		conversations[ev.ConversationID] = struct{}{}
		oa.TotalInputTokens += ev.InputTokens
		oa.TotalOutputTokens += ev.OutputTokens
		oa.TotalTokens += ev.TotalTokens

		// First model to reach the maximum wins ties.
		modelCounts[ev.ModelID]++
		if c := modelCounts[ev.ModelID]; c > best {
			best = c
			oa.MostUsedModel = ev.ModelID
		}
	}

	oa.TotalMessages = len(events)
	oa.TotalConversations = len(conversations)
	if oa.TotalConversations > 0 {
		oa.AverageMessagesPerConversation = float64(oa.TotalMessages) / float64(oa.TotalConversations)
	}
	if oa.TotalMessages > 0 {
		oa.AverageTokensPerMessage = float64(oa.TotalTokens) / float64(oa.TotalMessages)
	}
	return oa
}

// Daily returns exactly days entries, one per calendar day ending today,
// in ascending date order. Days without events carry zero values.
func (l *Ledger) Daily(days int) []DailyUsage {
	if days <= 0 {
		return []DailyUsage{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return dailyFrom(l.events, days, l.clock.Now(), l.loc)
}

func dailyFrom(events []UsageEvent, days int, now time.Time, loc *time.Location) []DailyUsage {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	result := make([]DailyUsage, days)
	index := make(map[string]int, days)
	convs := make([]map[string]struct{}, days)
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i-(days-1)).Format(dateLayout)
		result[i] = DailyUsage{Date: date}
		index[date] = i
		convs[i] = make(map[string]struct{})
	}

	for _, ev := range events {
		i, ok := index[ev.Timestamp.In(loc).Format(dateLayout)]
		if !ok {
			continue
		}
		result[i].Messages++
		result[i].Tokens += ev.TotalTokens
		convs[i][ev.ConversationID] = struct{}{}
	}
	for i := range result {
		result[i].Conversations = len(convs[i])
	}
	return result
}

// ModelShares returns each model's share of the total token volume, largest
// first. An empty log yields an empty slice.
func (l *Ledger) ModelShares() []ModelShare {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sharesFrom(l.events)
}

func sharesFrom(events []UsageEvent) []ModelShare {
	var order []string
	totals := make(map[string]int64)
	var grand int64
	for _, ev := range events {
		if _, ok := totals[ev.ModelID]; !ok {
			order = append(order, ev.ModelID)
		}
		totals[ev.ModelID] += ev.TotalTokens
		grand += ev.TotalTokens
	}

	result := make([]ModelShare, 0, len(order))
	for _, id := range order {
		share := ModelShare{ModelID: id, Tokens: totals[id]}
		if grand > 0 {
			share.Percentage = float64(share.Tokens) / float64(grand) * 100
		}
		result = append(result, share)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Tokens > result[j].Tokens
	})
	return result
}
