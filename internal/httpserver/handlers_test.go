package httpserver

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tokenledger/internal/ledger"
)

func TestRecordUsage(t *testing.T) {
	server, l := newTestServer(t, Options{})

	w := do(t, server, http.MethodPost, "/usage",
		`{"conversationId":"c1","modelId":"gpt","inputTokens":10,"outputTokens":20}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var ev ledger.UsageEvent
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ev))
	assert.Equal(t, "c1", ev.ConversationID)
	assert.Equal(t, "gpt", ev.ModelID)
	assert.Equal(t, int64(30), ev.TotalTokens)
	assert.False(t, ev.Timestamp.IsZero())

	assert.Equal(t, 1, l.Len())
}

func TestRecordUsageValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{"conversationId":`},
		{"missing conversation", `{"modelId":"m","inputTokens":1}`},
		{"missing model", `{"conversationId":"c","inputTokens":1}`},
	}

	server, l := newTestServer(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, server, http.MethodPost, "/usage", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.Equal(t, 0, l.Len())
}

func TestRecordUsageClampsNegative(t *testing.T) {
	server, _ := newTestServer(t, Options{})

	w := do(t, server, http.MethodPost, "/usage",
		`{"conversationId":"c1","modelId":"m","inputTokens":-5,"outputTokens":7}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var ev ledger.UsageEvent
	require.NoError(t, json.NewDecoder(w.Body).Decode(&ev))
	assert.Equal(t, int64(0), ev.InputTokens)
	assert.Equal(t, int64(7), ev.TotalTokens)
}

func TestClearUsage(t *testing.T) {
	server, l := newTestServer(t, Options{})
	l.Record("c1", "m", 1, 1)
	l.Record("c2", "m", 1, 1)

	w := do(t, server, http.MethodDelete, "/usage", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, l.Len())

	w = do(t, server, http.MethodGet, "/stats/overall", "")
	var overall ledger.OverallAnalytics
	require.NoError(t, json.NewDecoder(w.Body).Decode(&overall))
	assert.Equal(t, 0, overall.TotalMessages)
}

func TestUsageMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer(t, Options{})
	w := do(t, server, http.MethodGet, "/usage", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestExport(t *testing.T) {
	server, l := newTestServer(t, Options{})
	l.Record("c1", "m1", 10, 20)

	t.Run("default json", func(t *testing.T) {
		w := do(t, server, http.MethodGet, "/export", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var exp ledger.Export
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &exp))
		assert.Len(t, exp.RawData, 1)
		assert.Len(t, exp.Daily, ledger.ExportWindowDays)
	})

	t.Run("csv", func(t *testing.T) {
		w := do(t, server, http.MethodGet, "/export?format=csv", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "token-usage.csv")

		rows, err := csv.NewReader(w.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "Conversation ID", rows[0][0])
		assert.Equal(t, []string{"c1", "m1", "10", "20", "30"}, rows[1][:5])
	})

	t.Run("unknown format", func(t *testing.T) {
		w := do(t, server, http.MethodGet, "/export?format=xml", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
