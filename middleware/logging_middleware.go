package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mini-tl/message"
)

func LoggingMiddleware(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, data []byte) (message.Entity, error) {
			start := time.Now()
			e, err := next(ctx, data)
			fields := []zap.Field{
				zap.Int("bytes", len(data)),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil {
				logger.Warn("decode failed", append(fields, zap.Error(err))...)
				return nil, err
			}
			logger.Debug("decoded", append(fields, zap.Stringer("type", e.TypeID()))...)
			return e, nil
		}
	}
}
