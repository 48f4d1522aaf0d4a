package authctx

import (
	"context"

	"salonpos-backend/internal/domain"
)

type contextKey string

const userContextKey contextKey = "currentUser"

// CurrentUser carries the authenticated user and their salon. The salon ID
// travels explicitly in the context so no handler depends on ambient state.
type CurrentUser struct {
	ID      int64
	SalonID int64
	Email   string
	Name    string
	Role    domain.UserRole
}

func WithCurrentUser(ctx context.Context, user CurrentUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func FromContext(ctx context.Context) *CurrentUser {
	val, ok := ctx.Value(userContextKey).(CurrentUser)
	if !ok {
		return nil
	}
	return &val
}
