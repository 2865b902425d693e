// AngelaMos | 2026
// server_test.go

package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/storefront/internal/admin"
	"github.com/carterperez-dev/storefront/internal/auth"
	"github.com/carterperez-dev/storefront/internal/config"
	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/health"
	"github.com/carterperez-dev/storefront/internal/middleware"
	"github.com/carterperez-dev/storefront/internal/product"
	"github.com/carterperez-dev/storefront/internal/rbac"
	"github.com/carterperez-dev/storefront/internal/server"
	"github.com/carterperez-dev/storefront/internal/testutil"
	"github.com/carterperez-dev/storefront/internal/user"
)

const password = "hunter22"

type app struct {
	handler http.Handler
	fx      *testutil.ProviderFixture
}

func newApp(t *testing.T) *app {
	t.Helper()

	fx := testutil.NewProvider(t)
	logger := testutil.DiscardLogger()

	srv := server.New(server.Config{
		ServerConfig: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         0,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		HealthHandler: health.NewHandler("Storefront API"),
		Logger:        logger,
	})

	srv.Router().Use(middleware.RequestID)

	products := product.NewService(
		testutil.NewProducts(append(product.SampleProducts(),
			product.Product{ID: "prod_low", Name: "Last One", Stock: 1})...),
		time.Minute,
		logger,
	)

	srv.Mount(server.Routes{
		Resolver: fx.Provider,
		Auth: auth.NewHandler(fx.Provider, config.SessionConfig{
			CookieName: testutil.CookieName,
		}, logger),
		Users:    user.NewHandler(user.NewService(fx.Users)),
		Products: product.NewHandler(products),
		Admin:    admin.NewHandler(admin.HandlerConfig{Roles: fx.Users}),
	})

	return &app{handler: srv.Router(), fx: fx}
}

func (a *app) do(
	t *testing.T,
	method, path string,
	body any,
	cookie *http.Cookie,
) (*httptest.ResponseRecorder, core.Envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env core.Envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func cookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == testutil.CookieName {
			return c
		}
	}
	t.Fatalf("response set no session cookie")
	return nil
}

// seedUser stores a user with the given role directly, bypassing the
// registration role restriction, and returns its id.
func (a *app) seedUser(t *testing.T, email string, role rbac.Role) string {
	t.Helper()

	hash, err := core.HashPassword(password)
	require.NoError(t, err)

	id := uuid.New().String()
	a.fx.Users.Put(user.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		Name:         string(role) + " user",
		Role:         role,
	})
	return id
}

func (a *app) login(t *testing.T, email string) *http.Cookie {
	t.Helper()

	rec, env := a.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)
	return cookieFrom(t, rec)
}

func TestCustomerJourney(t *testing.T) {
	a := newApp(t)

	rec, _ := a.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":    "shopper@example.com",
		"password": password,
		"name":     "Shopper",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	cookie := a.login(t, "shopper@example.com")

	rec, env := a.do(t, http.MethodGet, "/api/auth/profile", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)

	rec, env = a.do(t, http.MethodGet, "/api/auth/users", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "INSUFFICIENT_ROLE", env.Code)

	rec, _ = a.do(t, http.MethodGet, "/api/auth/users", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = a.do(t, http.MethodGet, "/api/products", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = a.do(t, http.MethodGet, "/api/products/low-stock", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = a.do(t, http.MethodGet, "/api/admin/stats/users", nil, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminDemotesShopManager(t *testing.T) {
	a := newApp(t)

	a.seedUser(t, "admin@example.com", rbac.Admin)
	managerID := a.seedUser(t, "manager@example.com", rbac.ShopManager)
	adminCookie := a.login(t, "admin@example.com")
	managerCookie := a.login(t, "manager@example.com")

	rec, _ := a.do(t, http.MethodGet, "/api/products/low-stock", nil, managerCookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env := a.do(t, http.MethodPut, "/api/auth/roles/update", map[string]string{
		"userId": managerID,
		"role":   "CUSTOMER",
	}, adminCookie)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	stored, ok := a.fx.Users.Get(managerID)
	require.True(t, ok)
	assert.Equal(t, rbac.Customer, stored.Role)

	rec, _ = a.do(t, http.MethodGet, "/api/products/low-stock", nil, managerCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminCannotModifyPeerAdmin(t *testing.T) {
	a := newApp(t)

	a.seedUser(t, "admin1@example.com", rbac.Admin)
	peerID := a.seedUser(t, "admin2@example.com", rbac.Admin)
	cookie := a.login(t, "admin1@example.com")

	writes := a.fx.Users.Writes

	rec, env := a.do(t, http.MethodPut, "/api/auth/roles/update", map[string]string{
		"userId": peerID,
		"role":   "CUSTOMER",
	}, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Insufficient permissions to modify this user's role", env.Message)

	stored, _ := a.fx.Users.Get(peerID)
	assert.Equal(t, rbac.Admin, stored.Role)
	assert.Equal(t, writes, a.fx.Users.Writes)
}

func TestAdminCannotGrantSuperAdmin(t *testing.T) {
	a := newApp(t)

	a.seedUser(t, "admin@example.com", rbac.Admin)
	customerID := a.seedUser(t, "shopper@example.com", rbac.Customer)
	cookie := a.login(t, "admin@example.com")

	rec, env := a.do(t, http.MethodPut, "/api/auth/roles/update", map[string]string{
		"userId": customerID,
		"role":   "SUPER_ADMIN",
	}, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Cannot grant a role above your own", env.Message)

	stored, _ := a.fx.Users.Get(customerID)
	assert.Equal(t, rbac.Customer, stored.Role)
}

func TestSuperAdminCannotModifySuperAdmin(t *testing.T) {
	a := newApp(t)

	a.seedUser(t, "root1@example.com", rbac.SuperAdmin)
	otherID := a.seedUser(t, "root2@example.com", rbac.SuperAdmin)
	cookie := a.login(t, "root1@example.com")

	rec, _ := a.do(t, http.MethodPut, "/api/auth/roles/update", map[string]string{
		"userId": otherID,
		"role":   "ADMIN",
	}, cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	stored, _ := a.fx.Users.Get(otherID)
	assert.Equal(t, rbac.SuperAdmin, stored.Role)
}

func TestPasswordResetRequestIsUniform(t *testing.T) {
	a := newApp(t)
	a.seedUser(t, "known@example.com", rbac.Customer)

	known, _ := a.do(t, http.MethodPost, "/api/auth/password-reset/request",
		map[string]string{"email": "known@example.com"}, nil)
	unknown, _ := a.do(t, http.MethodPost, "/api/auth/password-reset/request",
		map[string]string{"email": "unknown@example.com"}, nil)

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	assert.Equal(t, 1, a.fx.MailCount())
}

func TestRoleChangeVisibleOnNextRequest(t *testing.T) {
	a := newApp(t)

	customerID := a.seedUser(t, "rising@example.com", rbac.Customer)
	cookie := a.login(t, "rising@example.com")

	rec, _ := a.do(t, http.MethodGet, "/api/auth/users", nil, cookie)
	require.Equal(t, http.StatusForbidden, rec.Code)

	stored, _ := a.fx.Users.Get(customerID)
	stored.Role = rbac.Admin
	a.fx.Users.Put(stored)

	rec, _ = a.do(t, http.MethodGet, "/api/auth/users", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSuperAdminStats(t *testing.T) {
	a := newApp(t)

	a.seedUser(t, "root@example.com", rbac.SuperAdmin)
	a.seedUser(t, "c1@example.com", rbac.Customer)
	cookie := a.login(t, "root@example.com")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats/users", nil)
	req.AddCookie(cookie)
	a.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data admin.UserStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Data.Total)
}

func TestHealthAndRequestID(t *testing.T) {
	a := newApp(t)

	rec, _ := a.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}
