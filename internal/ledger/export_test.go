package ledger

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCSV_HeaderAndRows(t *testing.T) {
	l, clock := newTestLedger(t, newFakeStore())
	l.Record("c1", "m1", 10, 20)
	clock.Set(base.Add(1500 * time.Millisecond))
	l.Record("c2", "m2", 3, 4)

	data, err := l.ExportCSV()
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Conversation ID", "Model ID", "Input Tokens", "Output Tokens", "Total Tokens", "Timestamp"}, rows[0])
	assert.Equal(t, []string{"c1", "m1", "10", "20", "30", "2026-03-10T12:00:00Z"}, rows[1])
	assert.Equal(t, []string{"c2", "m2", "3", "4", "7", "2026-03-10T12:00:01.5Z"}, rows[2])
}

func TestExportCSV_EmptyLogHasHeaderOnly(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())

	data, err := l.ExportCSV()
	require.NoError(t, err)

	assert.Equal(t, "Conversation ID,Model ID,Input Tokens,Output Tokens,Total Tokens,Timestamp\n", string(data))
}

func TestExportJSON_ContainsAllViews(t *testing.T) {
	l, _ := newTestLedger(t, newFakeStore())
	l.Record("c1", "m1", 10, 20)
	l.Record("c1", "m2", 1, 1)

	data, err := l.ExportJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"overall\"")

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, key := range []string{"overall", "daily", "byModel", "rawData", "exportedAt"} {
		assert.Contains(t, doc, key)
	}

	var exp Export
	require.NoError(t, json.Unmarshal(data, &exp))
	assert.Len(t, exp.Daily, ExportWindowDays)
	assert.Len(t, exp.RawData, 2)
	assert.Equal(t, int64(32), exp.Overall.TotalTokens)
	assert.Equal(t, "m1", exp.ByModel[0].ModelID)
	assert.True(t, exp.ExportedAt.Equal(base))
}

func TestExport_DoesNotReorderLog(t *testing.T) {
	l, clock := newTestLedger(t, newFakeStore())
	clock.Set(base.Add(time.Hour))
	l.Record("late", "m", 1, 1)
	clock.Set(base)
	l.Record("early", "m", 1, 1)

	_, err := l.ExportJSON()
	require.NoError(t, err)
	_, err = l.ExportCSV()
	require.NoError(t, err)

	events := l.Events()
	assert.Equal(t, "late", events[0].ConversationID)
	assert.Equal(t, "early", events[1].ConversationID)
}
