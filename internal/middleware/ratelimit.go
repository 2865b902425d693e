// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/storefront/internal/core"
)

type RateLimitConfig struct {
	// Name labels the limiter in metrics and logs.
	Name    string
	Limit   redis_rate.Limit
	KeyFunc func(*http.Request) string
	// FailOpen lets requests through while Redis is unreachable. Otherwise
	// an in-process bucket per key stands in until Redis answers again.
	FailOpen bool
}

type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	cfg      RateLimitConfig
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &RateLimiter{
		limiter:  redis_rate.NewLimiter(rdb),
		fallback: newLocalLimiter(),
		cfg:      cfg,
	}
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.cfg.KeyFunc(r)

		res, ok := rl.check(r.Context(), key)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		writeLimitHeaders(w.Header(), res)

		if res.Allowed == 0 {
			rateLimitedTotal.WithLabelValues(rl.cfg.Name).Inc()
			tooManyRequests(w, res.RetryAfter)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// check returns ok false only when Redis failed and the limiter fails
// open.
func (rl *RateLimiter) check(
	ctx context.Context,
	key string,
) (*redis_rate.Result, bool) {
	res, err := rl.limiter.Allow(ctx, key, rl.cfg.Limit)
	if err == nil {
		return res, true
	}

	if rl.cfg.FailOpen {
		slog.WarnContext(ctx, "rate limiter unavailable, failing open",
			"limiter", rl.cfg.Name,
			"error", err,
		)
		return nil, false
	}

	slog.WarnContext(ctx, "rate limiter unavailable, using local buckets",
		"limiter", rl.cfg.Name,
		"error", err,
	)
	return rl.fallback.allow(key, rl.cfg.Limit), true
}

// ClientIP prefers the right-most X-Forwarded-For hop, which is the one the
// nearest proxy appended.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		if ip := strings.TrimSpace(hops[len(hops)-1]); ip != "" {
			return ip
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + ClientIP(r)
}

// KeyByIPAndEndpoint buckets callers per route, so a burst on one email
// endpoint does not drain another.
func KeyByIPAndEndpoint(r *http.Request) string {
	return KeyByIP(r) + ":endpoint:" + normalizeEndpoint(r.URL.Path)
}

func normalizeEndpoint(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if isIdentifier(seg) {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func isIdentifier(seg string) bool {
	if _, err := uuid.Parse(seg); err == nil && len(seg) == 36 {
		return true
	}
	if _, err := strconv.ParseUint(seg, 10, 64); err == nil {
		return true
	}
	return false
}

func writeLimitHeaders(h http.Header, res *redis_rate.Result) {
	limit := res.Limit
	resetSecs := int(res.ResetAfter.Seconds())

	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(
		time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy",
		fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
	h.Set("RateLimit", fmt.Sprintf("%d;t=%d", res.Remaining, resetSecs))
}

func tooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	secs := int(retryAfter.Seconds())
	if secs < 1 {
		secs = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(secs))
	core.JSON(w, http.StatusTooManyRequests, core.Envelope{
		Success: false,
		Message: fmt.Sprintf("Too many requests. Retry after %d seconds.", secs),
		Code:    "RATE_LIMITED",
	})
}

// PerWindow allows rate requests per window with the given burst.
func PerWindow(rate, burst int, window time.Duration) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: window}
}

func PerHour(rate, burst int) redis_rate.Limit {
	return redis_rate.Limit{Rate: rate, Burst: burst, Period: time.Hour}
}
