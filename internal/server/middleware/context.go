package middleware

import (
	"context"

	"github.com/gosuda/taskboard/internal/domain"
)

type contextKey string

const ContextKeyUser contextKey = "user"

// WithUser stores the authenticated user in ctx.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, u)
}

func UserFromContext(ctx context.Context) (*domain.User, bool) {
	v, ok := ctx.Value(ContextKeyUser).(*domain.User)
	return v, ok && v != nil
}

// OrganizationIDFromContext returns the authenticated user's organization.
// ok is false when there is no user or the user has no organization.
func OrganizationIDFromContext(ctx context.Context) (int64, bool) {
	u, ok := UserFromContext(ctx)
	if !ok || u.OrganizationID == nil {
		return 0, false
	}
	return *u.OrganizationID, true
}

func RoleFromContext(ctx context.Context) (string, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return "", false
	}
	return u.Role(), true
}
