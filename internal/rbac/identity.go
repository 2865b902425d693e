// AngelaMos | 2026
// identity.go

package rbac

import (
	"context"
	"net/http"
	"time"
)

// Identity is the caller as resolved for a single request. It is rebuilt on
// every request from the session and the current user row, so a role change
// is visible on the very next request.
type Identity struct {
	UserID        string
	Email         string
	Name          string
	Role          Role
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Resolver turns inbound credential evidence into an Identity.
//
// A nil Identity with a nil error means no valid session was presented.
// A non-nil error means the lookup itself failed and must not be treated as
// an authorization outcome.
type Resolver interface {
	ResolveIdentity(ctx context.Context, headers http.Header) (*Identity, error)
}
