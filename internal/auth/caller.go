package auth

import (
	"context"
	"strings"
)

type ctxKey string

const callerKey ctxKey = "auth/caller"

// Caller is the authenticated identity an invocation runs on behalf of.
type Caller struct {
	ID string
}

// Authenticated reports whether the caller carries a usable identity.
func (c Caller) Authenticated() bool {
	return strings.TrimSpace(c.ID) != ""
}

// WithCaller stores the authenticated caller on the provided context.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

// CallerFrom extracts the authenticated caller from the context if present.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	if !ok || !c.Authenticated() {
		return Caller{}, false
	}
	return c, true
}
