package httpx

import "context"

type ctxKey string

const (
	ctxKeySessionID ctxKey = "session_id"
)

// ContextWithSessionID attaches a broker session id to ctx.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, id)
}

// SessionIDFromContext returns the session id, or "" when the request
// carried no session cookie.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeySessionID).(string); ok {
		return v
	}
	return ""
}
