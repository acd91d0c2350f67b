package auth

import (
	"context"

	"github.com/clarotec/orders-api/internal/domain"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID      uint
	Email       string
	DisplayName string
	Role        domain.UserRole
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// HasPermission checks the user's role against the capability map
func (u *UserContext) HasPermission(permission Permission) bool {
	return RoleHasPermission(u.Role, permission)
}

// IsStaff reports whether the user belongs to any internal staff role
func (u *UserContext) IsStaff() bool {
	return u.HasPermission(PermissionStaffAccess)
}

// ActorFromContext names who performed an action, for audit records
func ActorFromContext(ctx context.Context, fallback string) string {
	if u, ok := FromContext(ctx); ok && u.Email != "" {
		return u.Email
	}
	return fallback
}
