// AngelaMos | 2026
// handler_test.go

package product

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/middleware"
	"github.com/carterperez-dev/storefront/internal/rbac"
)

func newTestRouter(caller *rbac.Identity) http.Handler {
	svc := newTestService(newCountingRepo(
		append(SampleProducts(), Product{ID: "prod_low", Name: "Rare", Stock: 2})...,
	))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithIdentity(req.Context(), caller)))
		})
	})
	r.Route("/api/products", NewHandler(svc).RegisterRoutes)
	return r
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, core.Envelope) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var env core.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestHandler_ListIsPublic(t *testing.T) {
	rec, env := get(t, newTestRouter(nil), "/api/products")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Products retrieved successfully", env.Message)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 4, env.Meta.Total)
}

func TestHandler_Get(t *testing.T) {
	h := newTestRouter(nil)

	rec, _ := get(t, h, "/api/products/prod_2")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env := get(t, h, "/api/products/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestHandler_LowStockGate(t *testing.T) {
	tests := []struct {
		name   string
		caller *rbac.Identity
		want   int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"customer", &rbac.Identity{UserID: "c", Role: rbac.Customer}, http.StatusForbidden},
		{"shop manager", &rbac.Identity{UserID: "s", Role: rbac.ShopManager}, http.StatusOK},
		{"super admin", &rbac.Identity{UserID: "x", Role: rbac.SuperAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := get(t, newTestRouter(tt.caller), "/api/products/low-stock")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandler_LowStockBody(t *testing.T) {
	caller := &rbac.Identity{UserID: "s", Role: rbac.ShopManager}
	rec := httptest.NewRecorder()
	newTestRouter(caller).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/products/low-stock?threshold=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data LowStockResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Data.Threshold)
	require.Len(t, body.Data.Products, 1)
	assert.Equal(t, "prod_low", body.Data.Products[0].ID)
}
