// Package async runs background tasks with panic recovery.
//
//	done := async.SafeGo(ctx, log, 5*time.Second, "progress drain", func(ctx context.Context) error {
//		return drain(ctx)
//	})
//	if err := <-done; err != nil {
//		...
//	}
//
// A panic in the task is logged with its stack and delivered as an error
// instead of crashing the process.
package async
