package common

import (
	"context"

	"github.com/joseph-ayodele/invoice-intake/constants"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyUser      contextKey = "user"
)

// Identity is the caller on whose behalf work runs.
type Identity struct {
	Username string
	FullName string
	Email    string
}

// Name returns the first non-empty identifier, or the unknown-user marker.
func (i Identity) Name() string {
	switch {
	case i.Username != "":
		return i.Username
	case i.FullName != "":
		return i.FullName
	case i.Email != "":
		return i.Email
	}
	return constants.UnknownUser
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithIdentity adds the caller identity to the context
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ContextKeyUser, id)
}

// IdentityFromContext extracts the caller identity from context
func IdentityFromContext(ctx context.Context) Identity {
	if id, ok := ctx.Value(ContextKeyUser).(Identity); ok {
		return id
	}
	return Identity{}
}

// Detach returns a fresh context carrying only identity and request ID from parent.
// Work handed to another goroutine uses it so cancellation is owned by the new task.
func Detach(parent context.Context) context.Context {
	ctx := context.Background()
	if id, ok := parent.Value(ContextKeyUser).(Identity); ok {
		ctx = WithIdentity(ctx, id)
	}
	if rid := RequestIDFromContext(parent); rid != "" {
		ctx = WithRequestID(ctx, rid)
	}
	return ctx
}
