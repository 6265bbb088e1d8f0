package context

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/far4599/ytdl-jobs/internal/pkg/log"
)

// NewSignalledContext is cancelled on the first SIGINT or SIGTERM.
func NewSignalledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer cancel()

		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(done)

		sig := <-done
		log.Logger.Infow("received signal, shutting down", "signal", sig.String())
	}()

	return ctx
}
