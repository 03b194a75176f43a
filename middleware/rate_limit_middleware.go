package middleware

import (
	"context"

	"golang.org/x/time/rate"

	"mini-tl/message"
)

// RateLimitMiddleware admits decodes through a token bucket of r per second with the
// given burst. Calls over the limit fail with ErrRateLimited without decoding.
func RateLimitMiddleware(r float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(r), burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, data []byte) (message.Entity, error) {
			if !limiter.Allow() {
				return nil, ErrRateLimited
			}
			return next(ctx, data)
		}
	}
}
