// Package requestcontext carries per-request values (request ID, clock) through
// context so services stay free of transport concerns.
package requestcontext

import (
	"context"
	"time"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	nowKey       contextKey = "request_now"
)

// WithRequestID returns a context carrying the given request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request ID from the context, or "" when absent.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// WithNow pins the request clock to a fixed instant. Tests use this to make
// timestamp-derived state deterministic.
func WithNow(ctx context.Context, now time.Time) context.Context {
	return context.WithValue(ctx, nowKey, now)
}

// Now returns the pinned request time if present, else the wall clock.
func Now(ctx context.Context) time.Time {
	if v, ok := ctx.Value(nowKey).(time.Time); ok {
		return v
	}
	return time.Now().UTC()
}
