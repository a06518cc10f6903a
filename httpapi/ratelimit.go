package httpapi

import (
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const codeThrottled = 4290

// ipLimiter hands out one token bucket per client IP. Idle buckets age out of
// a bounded LRU, so a flood of source addresses cannot grow it without limit.
type ipLimiter struct {
	perSecond rate.Limit
	burst     int
	buckets   *expirable.LRU[string, *rate.Limiter]
}

func newIPLimiter(perSecond float64, burst, size int, idle time.Duration) *ipLimiter {
	return &ipLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		buckets:   expirable.NewLRU[string, *rate.Limiter](size, nil, idle),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	lim, ok := l.buckets.Get(ip)
	if !ok {
		lim = rate.NewLimiter(l.perSecond, l.burst)
		// Concurrent first requests may each create a bucket; the last one wins
		// and the others are dropped with one token spent.
		l.buckets.Add(ip, lim)
	}
	return lim.Allow()
}

// RateLimit throttles requests per client IP with a token bucket.
func (l *ipLimiter) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := remoteIP(r)
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(ip) {
			writeJSON(w, http.StatusTooManyRequests, envelope{Code: codeThrottled, Message: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
