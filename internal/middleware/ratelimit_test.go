package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Strob0t/Gatekeeper/internal/ratelimit"
)

func newIPLimited(max int) http.Handler {
	l := ratelimit.New(map[ratelimit.Scope]ratelimit.Config{
		ratelimit.ScopeIP: {Window: time.Minute, Max: max},
	}, 0)
	return IPRateLimit(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestIPRateLimitAllowsUnderLimit(t *testing.T) {
	handler := newIPLimited(5)

	for i := range 5 {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = "192.0.2.1:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rec.Code)
		}
		if rec.Header().Get("X-RateLimit-Remaining") == "" {
			t.Error("expected X-RateLimit-Remaining header")
		}
	}
}

func TestIPRateLimitRejectsOverLimit(t *testing.T) {
	handler := newIPLimited(2)

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = "192.0.2.1:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
	}

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = "192.0.2.1:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestIPRateLimitPerOrigin(t *testing.T) {
	handler := newIPLimited(1)

	req1 := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req1.RemoteAddr = "192.0.2.1:4000"
	handler.ServeHTTP(httptest.NewRecorder(), req1)

	blocked := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	blocked.RemoteAddr = "192.0.2.1:5000" // same IP, different port
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, blocked)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("same IP different port: expected 429, got %d", rec.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	other.RemoteAddr = "192.0.2.2:4000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("other IP: expected 200, got %d", rec.Code)
	}
}

func TestIPRateLimitGroupsIPv6Prefix(t *testing.T) {
	handler := newIPLimited(1)

	first := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	first.RemoteAddr = "[2001:db8:abcd:12:1:2:3:4]:4000"
	handler.ServeHTTP(httptest.NewRecorder(), first)

	rotated := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	rotated.RemoteAddr = "[2001:db8:abcd:12:9:9:9:9]:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, rotated)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("rotated address within /64: expected 429, got %d", rec.Code)
	}
}

func TestIPRateLimitRotatingForwardedHeaders(t *testing.T) {
	handler := newIPLimited(2)

	// One origin rotating X-Forwarded-For and X-Real-Ip per request must
	// stay pinned to its RemoteAddr bucket: everything past the limit is
	// denied no matter what the headers claim.
	denied := 0
	for i := range 10 {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.RemoteAddr = "192.0.2.1:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-Ip", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			denied++
		}
	}

	if denied != 8 {
		t.Errorf("denied = %d of 10, want 8", denied)
	}
}

func TestIPRateLimitIgnoresForwardedHeaders(t *testing.T) {
	handler := newIPLimited(1)

	first := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	first.RemoteAddr = "192.0.2.1:4000"
	handler.ServeHTTP(httptest.NewRecorder(), first)

	// Spoofed X-Forwarded-For must not reset the counter.
	spoofed := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	spoofed.RemoteAddr = "192.0.2.1:4000"
	spoofed.Header.Set("X-Forwarded-For", "198.51.100.99")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, spoofed)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("spoofed header: expected 429, got %d", rec.Code)
	}
}
