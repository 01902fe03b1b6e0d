package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// SignalHandler manages OS signals for graceful shutdown
type SignalHandler struct {
	sigChan chan os.Signal
	log     zerolog.Logger
}

// NewSignalHandler registers for interrupt and terminate signals
func NewSignalHandler(logger zerolog.Logger) *SignalHandler {
	sh := &SignalHandler{
		sigChan: make(chan os.Signal, 1),
		log:     logger,
	}
	signal.Notify(sh.sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sh
}

// HandleSignals cancels ctx on the first shutdown signal. The watcher stops
// when ctx ends on its own.
func (sh *SignalHandler) HandleSignals(ctx context.Context, cancel context.CancelFunc) {
	go func() {
		defer signal.Stop(sh.sigChan)
		select {
		case sig := <-sh.sigChan:
			sh.log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()
}
