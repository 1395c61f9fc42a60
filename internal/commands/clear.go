package commands

import (
	"errors"
	"io"

	"tokenledger/internal/ledger"
	"tokenledger/internal/output"
	"tokenledger/internal/ui"
)

var errClearAborted = errors.New("clear aborted")

// RunClear deletes every recorded event. Without yes it asks for confirmation
// on in; JSON mode never prompts and requires yes.
func RunClear(l *ledger.Ledger, yes bool, in io.Reader) error {
	n := l.Len()
	if !yes {
		if output.JSONMode {
			return errors.New("refusing to clear without --yes in JSON mode")
		}
		if !ui.Confirm(in, "Delete all %d recorded events?", n) {
			ui.ShowWarning("Nothing deleted")
			return errClearAborted
		}
	}

	l.Clear()
	output.Print(map[string]interface{}{"cleared": n}, func() {
		ui.ShowSuccess("Cleared %d events", n)
	})
	return nil
}
