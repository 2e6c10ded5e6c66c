package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

// SafeGo executes fn in a goroutine with panic recovery and, when timeout is
// positive, a deadline. The returned channel receives fn's error (or the
// recovered panic) and is then closed.
//
// Example:
//
//	done := async.SafeGo(ctx, log, 0, "signal watcher", func(ctx context.Context) error {
//	    <-ctx.Done()
//	    return nil
//	})
func SafeGo(parentCtx context.Context, log logrus.FieldLogger, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan error {
	if log == nil {
		log = logrus.StandardLogger()
	}
	done := make(chan error, 1)

	go func() {
		defer close(done)

		ctx, cancel := parentCtx, context.CancelFunc(func() {})
		if timeout > 0 {
			ctx, cancel = context.WithTimeout(parentCtx, timeout)
		}
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				log.WithField("task", taskName).Errorf("Panic: %v\n%s", r, debug.Stack())
				done <- fmt.Errorf("panic in %s: %v", taskName, r)
			}
		}()

		if err := fn(ctx); err != nil {
			log.WithField("task", taskName).WithError(err).Debug("Background task failed")
			done <- err
		}
	}()

	return done
}
