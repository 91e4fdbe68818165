//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop the daemon: Ctrl+C and the SIGTERM sent by process
// managers such as systemd and launchd.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
