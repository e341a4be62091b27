package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTenantIDFromHeader(t *testing.T) {
	var got string
	handler := TenantID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = TenantIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Tenant-ID", "tenant-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != "tenant-42" {
		t.Errorf("tenant = %q, want tenant-42", got)
	}
}

func TestTenantIDDefaultsWhenAbsent(t *testing.T) {
	var got string
	handler := TenantID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = TenantIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got != DefaultTenantID {
		t.Errorf("tenant = %q, want default", got)
	}
}

func TestTenantIDFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if got := TenantIDFromContext(req.Context()); got != DefaultTenantID {
		t.Errorf("tenant = %q, want default", got)
	}
}
