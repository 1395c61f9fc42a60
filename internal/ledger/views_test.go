package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_SumsEvents(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())
	l.Record("c1", "m1", 10, 20)
	l.Record("c1", "m1", 5, 5)

	ca, ok := l.Conversation("c1")

	require.True(t, ok)
	assert.Equal(t, 2, ca.MessageCount)
	assert.Equal(t, int64(40), ca.TotalTokens)
	assert.Equal(t, int64(15), ca.InputTokens)
	assert.Equal(t, int64(25), ca.OutputTokens)
	assert.Equal(t, []string{"m1"}, ca.ModelsUsed)
}

func TestConversation_ToleratesBackwardClock(t *testing.T) {
	l, clock := newTestLedger(t, newFakeStore())
	clock.Set(base.Add(time.Hour))
	l.Record("c1", "m1", 1, 1)
	clock.Set(base) // clock moved backwards
	l.Record("c1", "m2", 1, 1)
	clock.Set(base.Add(30 * time.Minute))
	l.Record("c1", "m1", 1, 1)

	ca, ok := l.Conversation("c1")

	require.True(t, ok)
	assert.True(t, ca.CreatedAt.Equal(base))
	assert.True(t, ca.LastActiveAt.Equal(base.Add(time.Hour)))
	assert.Equal(t, []string{"m1", "m2"}, ca.ModelsUsed)
}

func TestAbsence_UnknownIDs(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())
	l.Record("c1", "m1", 0, 0)

	_, ok := l.Conversation("unknown")
	assert.False(t, ok)
	_, ok = l.Model("unknown")
	assert.False(t, ok)

	// Zero-token usage is still present.
	ca, ok := l.Conversation("c1")
	assert.True(t, ok)
	assert.Equal(t, int64(0), ca.TotalTokens)
}

func TestModel_Aggregates(t *testing.T) {
	l, clock := newTestLedger(t, newFakeStore())
	l.Record("c1", "m1", 10, 10)
	clock.Set(base.Add(time.Hour))
	l.Record("c2", "m1", 20, 20)
	clock.Set(base.Add(-time.Hour))
	l.Record("c2", "m1", 30, 30)
	l.Record("c3", "m2", 1, 1)

	ma, ok := l.Model("m1")

	require.True(t, ok)
	assert.Equal(t, 2, ma.ConversationCount)
	assert.Equal(t, 3, ma.MessageCount)
	assert.Equal(t, int64(120), ma.TotalTokens)
	assert.InDelta(t, 40.0, ma.AverageTokensPerMessage, 1e-9)
	assert.True(t, ma.LastUsedAt.Equal(base.Add(time.Hour)))
}

func TestModels_MostRecentFirst(t *testing.T) {
	l, clock := newTestLedger(t, newFakeStore())
	l.Record("c1", "old", 1, 1)
	clock.Set(base.Add(time.Hour))
	l.Record("c1", "new", 1, 1)

	models := l.Models()

	require.Len(t, models, 2)
	assert.Equal(t, "new", models[0].ModelID)
	assert.Equal(t, "old", models[1].ModelID)
}

func TestConversations_MostRecentFirst(t *testing.T) {
	l, clock := newTestLedger(t, newFakeStore())
	l.Record("a", "m", 1, 1)
	clock.Set(base.Add(time.Hour))
	l.Record("b", "m", 1, 1)
	clock.Set(base.Add(2 * time.Hour))
	l.Record("a", "m", 1, 1)

	convs := l.Conversations()

	require.Len(t, convs, 2)
	assert.Equal(t, "a", convs[0].ConversationID)
	assert.Equal(t, 2, convs[0].MessageCount)
	assert.Equal(t, "b", convs[1].ConversationID)
}

func TestOverall_Empty(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())

	oa := l.Overall()

	assert.Equal(t, 0, oa.TotalConversations)
	assert.Equal(t, 0, oa.TotalMessages)
	assert.Equal(t, "", oa.MostUsedModel)
	assert.Zero(t, oa.AverageMessagesPerConversation)
	assert.Zero(t, oa.AverageTokensPerMessage)
}

func TestOverall_MostUsedModel(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())
	l.Record("c1", "a", 1000, 1000)
	l.Record("c1", "b", 1, 1)
	l.Record("c2", "b", 1, 1)
	l.Record("c3", "b", 1, 1)

	oa := l.Overall()

	assert.Equal(t, "b", oa.MostUsedModel)
	assert.Equal(t, 3, oa.TotalConversations)
	assert.Equal(t, 4, oa.TotalMessages)
	assert.Equal(t, int64(1003), oa.TotalInputTokens)
	assert.Equal(t, int64(1003), oa.TotalOutputTokens)
	assert.Equal(t, int64(2006), oa.TotalTokens)
	assert.InDelta(t, 4.0/3.0, oa.AverageMessagesPerConversation, 1e-9)
	assert.InDelta(t, 2006.0/4.0, oa.AverageTokensPerMessage, 1e-9)
}

func TestOverall_TieGoesToFirstToReachMax(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())
	l.Record("c", "x", 1, 1)
	l.Record("c", "y", 1, 1)
	l.Record("c", "y", 1, 1)
	l.Record("c", "x", 1, 1)

	assert.Equal(t, "y", l.Overall().MostUsedModel)
}

func TestDaily_CompleteWindowWhenEmpty(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())

	days := l.Daily(7)

	require.Len(t, days, 7)
	assert.Equal(t, "2026-03-04", days[0].Date)
	assert.Equal(t, "2026-03-10", days[6].Date)
	for _, d := range days {
		assert.Zero(t, d.Messages)
		assert.Zero(t, d.Conversations)
		assert.Zero(t, d.Tokens)
	}
}

func TestDaily_BucketsByCalendarDay(t *testing.T) {
	l, clock := newTestLedger(t, newFakeStore())
	clock.Set(base.AddDate(0, 0, -2))
	l.Record("c1", "m", 10, 0)
	l.Record("c1", "m", 10, 0)
	l.Record("c2", "m", 5, 0)
	clock.Set(base.AddDate(0, 0, -30)) // outside the window
	l.Record("c3", "m", 100, 0)
	clock.Set(base)
	l.Record("c1", "m", 1, 1)

	days := l.Daily(3)

	require.Len(t, days, 3)
	assert.Equal(t, DailyUsage{Date: "2026-03-08", Conversations: 2, Messages: 3, Tokens: 25}, days[0])
	assert.Equal(t, DailyUsage{Date: "2026-03-09"}, days[1])
	assert.Equal(t, DailyUsage{Date: "2026-03-10", Conversations: 1, Messages: 1, Tokens: 2}, days[2])
}

func TestDaily_UsesLedgerLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	l, clock := newTestLedger(t, newFakeStore(), WithLocation(loc))
	// 23:30 UTC on the 9th is already the 10th at UTC+2.
	clock.Set(time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC))
	l.Record("c1", "m", 1, 0)
	clock.Set(base)

	days := l.Daily(2)

	require.Len(t, days, 2)
	assert.Equal(t, "2026-03-10", days[1].Date)
	assert.Equal(t, 1, days[1].Messages)
	assert.Equal(t, 0, days[0].Messages)
}

func TestDaily_NonPositiveWindow(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())
	assert.Empty(t, l.Daily(0))
	assert.Empty(t, l.Daily(-3))
}

func TestModelShares_SumToHundred(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())
	l.Record("c1", "small", 1, 2)
	l.Record("c1", "big", 50, 50)
	l.Record("c2", "mid", 10, 7)

	shares := l.ModelShares()

	require.Len(t, shares, 3)
	assert.Equal(t, "big", shares[0].ModelID)
	assert.Equal(t, "mid", shares[1].ModelID)
	assert.Equal(t, "small", shares[2].ModelID)
	var sum float64
	for _, s := range shares {
		sum += s.Percentage
	}
	assert.InDelta(t, 100.0, sum, 1e-9)
}

func TestModelShares_Empty(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())
	assert.Empty(t, l.ModelShares())
}

func TestModelShares_ZeroTokenEvents(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())
	l.Record("c1", "m", 0, 0)

	shares := l.ModelShares()

	require.Len(t, shares, 1)
	assert.Zero(t, shares[0].Percentage)
}
