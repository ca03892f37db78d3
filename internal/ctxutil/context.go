// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	requestIDKey  contextKey = "ctxutil.requestID"
	identifierKey contextKey = "ctxutil.identifier"
)

// WithRequestID adds a request ID to the context for tracing.
// Request ID is taken from the incoming headers or generated per request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// WithIdentifier adds the program identifier being looked up to the context.
func WithIdentifier(ctx context.Context, identifier string) context.Context {
	return context.WithValue(ctx, identifierKey, identifier)
}

// GetIdentifier retrieves the program identifier from the context.
// Returns empty string if not set.
func GetIdentifier(ctx context.Context) string {
	if v, ok := ctx.Value(identifierKey).(string); ok {
		return v
	}
	return ""
}
