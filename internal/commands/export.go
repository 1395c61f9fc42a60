package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"tokenledger/internal/ledger"
	"tokenledger/internal/output"
	"tokenledger/internal/ui"
)

// RunExport writes the ledger as json or csv to outPath, or stdout when empty.
func RunExport(l *ledger.Ledger, format, outPath string) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "", "json":
		format = "json"
		data, err = l.ExportJSON()
	case "csv":
		data, err = l.ExportCSV()
	default:
		return fmt.Errorf("unsupported format %q (expected json or csv)", format)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}

	if outPath == "" {
		return output.Raw(data)
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	output.Print(map[string]interface{}{
		"path":   outPath,
		"format": format,
		"bytes":  len(data),
		"events": l.Len(),
	}, func() {
		ui.ShowSuccess("Exported %d events to %s", l.Len(), outPath)
	})
	return nil
}
