// Package bridge runs background tasks and lets sequential code park on
// the result of an asynchronous operation through one-shot cells
package bridge

import (
	"context"
	"runtime/debug"

	"replywatch/internal/platform/logger"
)

// Go runs fn on its own goroutine with recover-and-log. A panic or returned
// error is logged and swallowed so a failing task never takes the process down
func Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	log := logger.Named(name)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				log.Error().
					Interface("panic", v).
					Str("stack", string(debug.Stack())).
					Msg("task panicked")
			}
		}()
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("task exited with error")
		}
	}()
}
