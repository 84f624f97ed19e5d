package monitor

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// HandleSignals stops m on the first SIGINT or SIGTERM; a second one
// terminates the process. The returned function releases the handler.
func HandleSignals(m *Monitor) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	quit := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			// A second signal falls through to the default handler.
			signal.Stop(sigChan)
			slog.Info("received shutdown signal", "signal", sig)
			m.Stop()
		case <-quit:
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(quit)
	}
}
