// AngelaMos | 2026
// routes.go

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/storefront/internal/admin"
	"github.com/carterperez-dev/storefront/internal/auth"
	"github.com/carterperez-dev/storefront/internal/middleware"
	"github.com/carterperez-dev/storefront/internal/product"
	"github.com/carterperez-dev/storefront/internal/rbac"
	"github.com/carterperez-dev/storefront/internal/user"
)

// Routes is everything Mount needs to build the public API. Nil handlers
// are skipped.
type Routes struct {
	Resolver rbac.Resolver

	Auth     *auth.Handler
	Users    *user.Handler
	Products *product.Handler
	Admin    *admin.Handler

	// EmailLimit throttles the endpoints that send mail.
	EmailLimit func(http.Handler) http.Handler

	Metrics     http.Handler
	MetricsPath string
}

// Mount registers the health probes at the root and the API under /api.
// Identity is resolved once per request ahead of every /api route.
func (s *Server) Mount(rt Routes) {
	if s.health != nil {
		s.health.RegisterRoutes(s.router)
	}

	if rt.Metrics != nil {
		path := rt.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.router.Handle(path, rt.Metrics)
	}

	emailLimit := rt.EmailLimit
	if emailLimit == nil {
		emailLimit = func(next http.Handler) http.Handler { return next }
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticator(rt.Resolver))

		r.Route("/auth", func(r chi.Router) {
			if rt.Auth != nil {
				rt.Auth.RegisterRoutes(r, emailLimit)
			}
			if rt.Users != nil {
				rt.Users.RegisterRoutes(r)
			}
		})

		if rt.Products != nil {
			r.Route("/products", rt.Products.RegisterRoutes)
		}

		if rt.Admin != nil {
			r.Route("/admin", rt.Admin.RegisterRoutes)
		}
	})
}
