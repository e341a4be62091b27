package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"

	"github.com/Strob0t/Gatekeeper/internal/ratelimit"
)

// IPRateLimit returns HTTP middleware that enforces the ip scope of the
// limiter before a request ever reaches the orchestrator. The caller's
// network address is normalized first so IPv6 rotation within a delegated
// prefix shares one bucket.
func IPRateLimit(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := ratelimit.NormalizeOrigin(realIP(r))

			res := l.Admit(ratelimit.ScopeIP, origin)

			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", res.Remaining))

			if !res.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%.0f", math.Ceil(res.RetryAfter.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// realIP extracts the client IP from RemoteAddr.
// Proxy headers (X-Forwarded-For, X-Real-Ip) are NOT trusted because
// they can be spoofed by attackers to bypass rate limiting.
func realIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
