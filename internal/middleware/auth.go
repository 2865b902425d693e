// AngelaMos | 2026
// auth.go

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/rbac"
)

// Authenticator resolves the caller once per request and stores the
// resulting identity in the context. Requests without a usable session pass
// through anonymously; the role gates decide what that means.
func Authenticator(resolver rbac.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := resolver.ResolveIdentity(r.Context(), r.Header)
			if err != nil {
				slog.ErrorContext(r.Context(), "identity resolution failed",
					"error", err,
					"request_id", GetRequestID(r.Context()),
					"path", r.URL.Path,
				)
				core.InternalServerError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole lets the request through only when the resolved identity ranks
// at least required. It must run after Authenticator.
func RequireRole(required rbac.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := rbac.Authorize(IdentityFrom(r.Context()), required)
			observeDecision(r, required, decision)

			switch decision {
			case rbac.Allow:
				next.ServeHTTP(w, r)
			case rbac.DenyUnauthenticated:
				core.JSONError(w, core.UnauthorizedError(""))
			default:
				core.JSONError(w, core.ForbiddenError(""))
			}
		})
	}
}

var (
	RequireSuperAdmin  = RequireRole(rbac.SuperAdmin)
	RequireAdmin       = RequireRole(rbac.Admin)
	RequireShopManager = RequireRole(rbac.ShopManager)
	RequireCustomer    = RequireRole(rbac.Customer)
)
