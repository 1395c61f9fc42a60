package ledger

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// ExportWindowDays is the daily window included in the JSON export.
const ExportWindowDays = 30

// csvHeader is the fixed CSV column order.
var csvHeader = []string{"Conversation ID", "Model ID", "Input Tokens", "Output Tokens", "Total Tokens", "Timestamp"}

// Snapshot builds the export document from a consistent view of the log.
func (l *Ledger) Snapshot() Export {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.clock.Now()
	return Export{
		Overall:    overallFrom(l.events),
		Daily:      dailyFrom(l.events, ExportWindowDays, now, l.loc),
		ByModel:    sharesFrom(l.events),
		RawData:    l.snapshotLocked(),
		ExportedAt: now,
	}
}

// ExportJSON serializes the raw log and every derived view as indented JSON.
func (l *Ledger) ExportJSON() ([]byte, error) {
	data, err := json.MarshalIndent(l.Snapshot(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal usage export: %w", err)
	}
	return data, nil
}

// ExportCSV serializes the raw log as one row per event.
func (l *Ledger) ExportCSV() ([]byte, error) {
	events := l.Events()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, ev := range events {
		row := []string{
			ev.ConversationID,
			ev.ModelID,
			strconv.FormatInt(ev.InputTokens, 10),
			strconv.FormatInt(ev.OutputTokens, 10),
			strconv.FormatInt(ev.TotalTokens, 10),
			ev.Timestamp.UTC().Format(time.RFC3339Nano),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
