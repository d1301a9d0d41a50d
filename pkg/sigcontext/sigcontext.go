// Package sigcontext ties process signals to contexts and callbacks.
package sigcontext

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// WithSignalCancel returns a context cancelled when one of sigs is received.
// The returned cancel releases the signal handlers and must be called; once
// it is, a repeated signal gets the runtime's default handling.
func WithSignalCancel(ctx context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	sigctx, ctxcancel := context.WithCancel(ctx)

	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, sigs...)

	var once sync.Once
	cancel := func() {
		ctxcancel()
		once.Do(func() {
			signal.Stop(sigchan)
		})
	}

	go func() {
		select {
		case <-sigctx.Done():
		case <-sigchan:
			ctxcancel()
		}
	}()

	return sigctx, cancel
}

// OnSignal calls fn with ctx for each of sigs received until ctx is done.
// Calls are serialized.
func OnSignal(ctx context.Context, fn func(context.Context), sigs ...os.Signal) {
	sigchan := make(chan os.Signal, 1)
	signal.Notify(sigchan, sigs...)
	go func() {
		defer signal.Stop(sigchan)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigchan:
				fn(ctx)
			}
		}
	}()
}
