package undo

import "context"

type sessionKey struct{}

type replayKey struct{}

// ContextWithSession binds the undo session identifier to the context.
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, sessionID)
}

// SessionFromContext returns the bound session identifier, if any.
func SessionFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(sessionKey{}).(string); ok {
		return value
	}
	return ""
}

// markReplay flags the context so recorders skip entries produced while a
// payload is being re-executed.
func markReplay(ctx context.Context) context.Context {
	return context.WithValue(ctx, replayKey{}, true)
}

func isReplay(ctx context.Context) bool {
	value, ok := ctx.Value(replayKey{}).(bool)
	return ok && value
}
