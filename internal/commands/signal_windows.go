//go:build windows

package commands

import "os"

// shutdownSignals stop `serve`. Windows only delivers os.Interrupt.
var shutdownSignals = []os.Signal{os.Interrupt}
