// AngelaMos | 2026
// metrics.go

package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/rbac"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests currently being served.",
	})

	authzDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_decisions_total",
		Help: "Authorization gate decisions by required role and outcome.",
	}, []string{"required_role", "decision"})

	rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limited_requests_total",
		Help: "Requests rejected with 429 by limiter.",
	}, []string{"limiter"})
)

// RegisterMetrics registers the HTTP and authorization collectors with reg
// and returns the scrape handler for it. A nil reg means the default
// registry.
func RegisterMetrics(reg prometheus.Registerer) (http.Handler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	for _, c := range []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDuration,
		httpInflight,
		authzDecisionsTotal,
		rateLimitedTotal,
	} {
		if err := registerCollector(reg, c); err != nil {
			return nil, err
		}
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{}), nil
	}
	return promhttp.Handler(), nil
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			return nil
		}
		return err
	}
	return nil
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInflight.Inc()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			httpInflight.Dec()
			route := routePattern(r)
			httpRequestDuration.WithLabelValues(r.Method, route).
				Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(
				r.Method,
				route,
				strconv.Itoa(rec.Status()),
			).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

// routePattern keeps label cardinality bounded by using the matched chi
// pattern instead of the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func observeDecision(r *http.Request, required rbac.Role, d rbac.Decision) {
	authzDecisionsTotal.WithLabelValues(required.String(), d.String()).Inc()
	core.AddSpanEvent(r.Context(), "authz.decision",
		attribute.String("authz.required_role", required.String()),
		attribute.String("authz.decision", d.String()),
	)
}
