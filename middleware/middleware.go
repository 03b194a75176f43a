// Package middleware composes the decode pipeline: a terminal Decode handler wrapped by
// stages that log, throttle or bound each call.
package middleware

import (
	"context"
	"errors"

	"mini-tl/message"
	"mini-tl/registry"
)

var (
	ErrRateLimited = errors.New("middleware: rate limit exceeded")
	ErrTimeout     = errors.New("middleware: decode timed out")
)

type HandlerFunc func(ctx context.Context, data []byte) (message.Entity, error)

type Middleware func(next HandlerFunc) HandlerFunc

// Chain combines middlewares so the first one listed runs outermost.
func Chain(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}
		return next
	}
}

// Decode is the terminal handler: one complete message decoded with reg.
func Decode(reg *registry.Registry) HandlerFunc {
	return func(ctx context.Context, data []byte) (message.Entity, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return reg.DeserializeMessage(data)
	}
}
