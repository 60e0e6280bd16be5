package safego

import (
	"context"
	"runtime/debug"

	"github.com/kiosk404/ferry/pkg/logger"
)

// Go runs fn in a new goroutine and recovers any panic so that a broken
// handler never takes the process down.
func Go(ctx context.Context, fn func(ctx context.Context)) {
	go func() {
		defer Recover("safego")
		fn(ctx)
	}()
}

// Recover logs a recovered panic with its stack. It must be deferred directly.
func Recover(scope string) {
	if r := recover(); r != nil {
		logger.Error("[%s] recovered from panic: %v\n%s", scope, r, debug.Stack())
	}
}
