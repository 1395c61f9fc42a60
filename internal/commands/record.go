package commands

import (
	"errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"tokenledger/internal/ledger"
	"tokenledger/internal/output"
	"tokenledger/internal/ui"
)

// RecordOptions are the flags of `tokenledger record`.
type RecordOptions struct {
	Conversation string
	Model        string
	Input        int64
	Output       int64
}

// RunRecord appends one usage event. A missing conversation id gets a fresh UUID.
func RunRecord(l *ledger.Ledger, opts RecordOptions) error {
	if opts.Model == "" {
		return errors.New("--model is required")
	}
	if opts.Conversation == "" {
		opts.Conversation = uuid.NewString()
	}

	ev := l.Record(opts.Conversation, opts.Model, opts.Input, opts.Output)

	output.Print(ev, func() {
		ui.ShowSuccess("Recorded %s tokens for %s", humanize.Comma(ev.TotalTokens), ev.ModelID)
		ui.ShowField("Conversation", "%s", ev.ConversationID)
		ui.ShowField("Input", "%s", humanize.Comma(ev.InputTokens))
		ui.ShowField("Output", "%s", humanize.Comma(ev.OutputTokens))
		ui.ShowField("At", "%s", ev.Timestamp.Format(time.RFC3339))
	})
	return nil
}
