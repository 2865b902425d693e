// AngelaMos | 2026
// ratelimit_local.go

package middleware

import (
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	localBucketTTL     = 10 * time.Minute
	localBucketCleanup = 5 * time.Minute
)

// localLimiter holds one token bucket per key. Idle buckets expire out of
// the cache and start full again on next use.
type localLimiter struct {
	mu      sync.Mutex
	buckets *gocache.Cache
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{
		buckets: gocache.New(localBucketTTL, localBucketCleanup),
	}
}

func (l *localLimiter) bucket(key string, limit redis_rate.Limit) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.buckets.Get(key); ok {
		if b, ok := v.(*rate.Limiter); ok {
			l.buckets.SetDefault(key, b)
			return b
		}
	}

	every := limit.Period / time.Duration(max(limit.Rate, 1))
	b := rate.NewLimiter(rate.Every(every), max(limit.Burst, 1))
	l.buckets.SetDefault(key, b)
	return b
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	b := l.bucket(key, limit)
	every := limit.Period / time.Duration(max(limit.Rate, 1))

	res := &redis_rate.Result{
		Limit:      limit,
		RetryAfter: -1,
		ResetAfter: every,
	}

	if b.Allow() {
		res.Allowed = 1
	} else {
		res.RetryAfter = every
	}

	if remaining := int(b.Tokens()); remaining > 0 {
		res.Remaining = remaining
	}
	return res
}
