//go:build !windows

package runner

// signal_unix.go contains the interrupt handler. The process group
// holds the harness, its workers and any live trace_processor children.
// Diff tests are stateless, so on interrupt everything is killed at
// once with no graceful teardown.

import (
	"os"
	"os/signal"
	"syscall"
)

// InstallInterruptHandler kills the whole process group on SIGINT or
// SIGTERM. No partial report is written.
func InstallInterruptHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		// Signal 0 targets the caller's own process group.
		_ = syscall.Kill(0, syscall.SIGKILL)
	}()
}
