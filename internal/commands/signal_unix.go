//go:build !windows

package commands

import (
	"os"
	"syscall"
)

// shutdownSignals stop `serve`. SIGTERM is included so service managers
// get a graceful shutdown.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
