package http

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"coop-loans/metrics"
)

// clientKey prefers the host part of RemoteAddr. chi's RealIP middleware may
// already have replaced RemoteAddr with a bare IP.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)

			if !limiter.Allow(client) {
				metrics.RateLimited.Inc()
				seconds := int(math.Ceil(limiter.RetryAfter(client).Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
