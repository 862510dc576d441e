package calendar

import "context"

type contextKey string

const ctxKeyUserID contextKey = "user_id"

// ContextWithUserID records the authenticated user for the request.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext returns the authenticated user, or "" if none.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserID).(string); ok {
		return v
	}
	return ""
}
