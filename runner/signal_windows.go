//go:build windows

package runner

// signal_windows.go contains the interrupt fallback for platforms
// without unix process groups.

import (
	"os"
	"os/signal"
)

// InstallInterruptHandler exits immediately on interrupt. Children die
// with the console session; there is no process group to address.
func InstallInterruptHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	go func() {
		<-ch
		os.Exit(137)
	}()
}
