package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Out receives all human-readable output. Tests swap it.
var Out io.Writer = os.Stdout

func ShowHeader(title string) {
	fmt.Fprintf(Out, " %s\n", strings.Repeat("─", len(title)+2))
	fmt.Fprintf(Out, " %s\n", title)
	fmt.Fprintf(Out, " %s\n", strings.Repeat("─", len(title)+2))
}

// ShowField prints an aligned "label: value" line.
func ShowField(label string, format string, args ...interface{}) {
	fmt.Fprintf(Out, "  %-18s %s\n", label+":", fmt.Sprintf(format, args...))
}

func ShowSuccess(format string, args ...interface{}) {
	fmt.Fprintf(Out, " ✓ %s\n", fmt.Sprintf(format, args...))
}

func ShowError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(Out, " ✗ %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(Out, " ✗ %s\n", msg)
	}
}

func ShowWarning(format string, args ...interface{}) {
	fmt.Fprintf(Out, " ! %s\n", fmt.Sprintf(format, args...))
}

func ShowInfo(format string, args ...interface{}) {
	fmt.Fprintf(Out, " ℹ %s\n", fmt.Sprintf(format, args...))
}

// Confirm asks a yes/no question on Out and reads the answer from in.
// Anything other than y/yes is a no.
func Confirm(in io.Reader, format string, args ...interface{}) bool {
	fmt.Fprintf(Out, " ? %s [y/N]: ", fmt.Sprintf(format, args...))
	var answer string
	if _, err := fmt.Fscanln(in, &answer); err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
