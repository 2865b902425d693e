// AngelaMos | 2026
// context.go

package middleware

import (
	"context"

	"github.com/carterperez-dev/storefront/internal/rbac"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	IdentityKey  contextKey = "identity"
)

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithIdentity returns a copy of ctx carrying id. A nil id leaves ctx as is.
func WithIdentity(ctx context.Context, id *rbac.Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, IdentityKey, id)
}

func IdentityFrom(ctx context.Context) *rbac.Identity {
	if id, ok := ctx.Value(IdentityKey).(*rbac.Identity); ok {
		return id
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if id := IdentityFrom(ctx); id != nil {
		return id.UserID
	}
	return ""
}

func GetUserRole(ctx context.Context) rbac.Role {
	if id := IdentityFrom(ctx); id != nil {
		return id.Role
	}
	return ""
}

func IsAuthenticated(ctx context.Context) bool {
	return IdentityFrom(ctx) != nil
}
