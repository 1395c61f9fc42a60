package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const hookTimeout = 30 * time.Second

// HookRunner executes a shell hook script with a JSON payload on stdin.
type HookRunner struct {
	ScriptPath string
}

// NewHookRunner creates a HookRunner for the given script path.
func NewHookRunner(scriptPath string) *HookRunner {
	return &HookRunner{ScriptPath: scriptPath}
}

// Execute runs the hook script with a 30-second timeout.
// The JSON-encoded payload is passed via stdin.
func (h *HookRunner) Execute(ctx context.Context, payload Payload) error {
	ctx, cancel := context.WithTimeout(ctx, hookTimeout)
	defer cancel()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("hook marshal payload: %w", err)
	}

	cmd := exec.CommandContext(ctx, h.ScriptPath)
	cmd.Stdin = strings.NewReader(string(data))
	cmd.Env = append(cmd.Environ(), "TOKENLEDGER_EVENT="+payload.Kind)

	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("hook timed out after %s: %s", hookTimeout, h.ScriptPath)
	}
	if err != nil {
		return fmt.Errorf("hook execution failed: %w (output: %s)", err, string(output))
	}
	return nil
}
