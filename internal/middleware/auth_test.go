// AngelaMos | 2026
// auth_test.go

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/rbac"
)

type stubResolver struct {
	id    *rbac.Identity
	err   error
	calls int
}

func (s *stubResolver) ResolveIdentity(
	_ context.Context,
	_ http.Header,
) (*rbac.Identity, error) {
	s.calls++
	return s.id, s.err
}

func okHandler(reached *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*reached = true
		w.WriteHeader(http.StatusOK)
	})
}

func serveGate(
	t *testing.T,
	resolver rbac.Resolver,
	gate func(http.Handler) http.Handler,
) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	reached := false
	h := Authenticator(resolver)(gate(okHandler(&reached)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/users", nil))
	return rec, reached
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) core.Envelope {
	t.Helper()
	var env core.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestRequireRole_NoIdentityIs401(t *testing.T) {
	gates := map[string]func(http.Handler) http.Handler{
		"super admin":  RequireSuperAdmin,
		"admin":        RequireAdmin,
		"shop manager": RequireShopManager,
		"customer":     RequireCustomer,
	}

	for name, gate := range gates {
		t.Run(name, func(t *testing.T) {
			rec, reached := serveGate(t, &stubResolver{}, gate)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, reached)

			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, "UNAUTHENTICATED", env.Code)
		})
	}
}

func TestRequireRole_InsufficientRoleIs403(t *testing.T) {
	resolver := &stubResolver{id: &rbac.Identity{UserID: "u-1", Role: rbac.Customer}}

	rec, reached := serveGate(t, resolver, RequireAdmin)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.False(t, reached)
	assert.Equal(t, "INSUFFICIENT_ROLE", decodeEnvelope(t, rec).Code)
}

func TestRequireRole_EqualRankPasses(t *testing.T) {
	resolver := &stubResolver{id: &rbac.Identity{UserID: "u-1", Role: rbac.Admin}}

	rec, reached := serveGate(t, resolver, RequireAdmin)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestRequireRole_HigherRankPasses(t *testing.T) {
	resolver := &stubResolver{id: &rbac.Identity{UserID: "u-1", Role: rbac.SuperAdmin}}

	rec, reached := serveGate(t, resolver, RequireShopManager)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestAuthenticator_ResolverFailureIs500(t *testing.T) {
	resolver := &stubResolver{err: errors.New("dial tcp: connection refused")}

	rec, reached := serveGate(t, resolver, RequireCustomer)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, reached)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", env.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestAuthenticator_StoresIdentity(t *testing.T) {
	want := &rbac.Identity{UserID: "u-42", Role: rbac.ShopManager}
	resolver := &stubResolver{id: want}

	var got *rbac.Identity
	h := Authenticator(resolver)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = IdentityFrom(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotNil(t, got)
	assert.Equal(t, "u-42", got.UserID)
	assert.Equal(t, 1, resolver.calls)
}

func TestAuthenticator_AnonymousPassesThrough(t *testing.T) {
	reached := false
	h := Authenticator(&stubResolver{})(okHandler(&reached))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_DecisionIsNotCached(t *testing.T) {
	resolver := &stubResolver{id: &rbac.Identity{UserID: "u-1", Role: rbac.Admin}}
	reached := false
	h := Authenticator(resolver)(RequireAdmin(okHandler(&reached)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	resolver.id = &rbac.Identity{UserID: "u-1", Role: rbac.Customer}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
