package middleware

import (
	"context"
	"time"

	"mini-tl/message"
)

type result struct {
	e   message.Entity
	err error
}

// TimeOutMiddleware abandons a decode that runs longer than timeout. The decode itself
// finishes in the background; its result is dropped.
func TimeOutMiddleware(timeout time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, data []byte) (message.Entity, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan result, 1)
			go func() {
				e, err := next(ctx, data)
				done <- result{e, err}
			}()

			select {
			case res := <-done:
				return res.e, res.err
			case <-ctx.Done():
				return nil, ErrTimeout
			}
		}
	}
}
