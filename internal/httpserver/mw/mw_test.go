package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

var noContent = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func serve(h http.Handler, r *http.Request) int {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec.Code
}

func TestAllowOnlyCIDRS(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		trustProxy bool
		remote     string
		xff        string
		want       int
	}{
		{name: "empty list passes", allowed: nil, remote: "203.0.113.9:1234", want: http.StatusNoContent},
		{name: "exact ip", allowed: []string{"10.0.0.1"}, remote: "10.0.0.1:5000", want: http.StatusNoContent},
		{name: "cidr", allowed: []string{"192.168.0.0/16"}, remote: "192.168.4.2:5000", want: http.StatusNoContent},
		{name: "outside", allowed: []string{"192.168.0.0/16"}, remote: "10.1.1.1:5000", want: http.StatusForbidden},
		{name: "forwarded ignored without trust", allowed: []string{"10.0.0.1"}, remote: "203.0.113.9:1", xff: "10.0.0.1", want: http.StatusForbidden},
		{name: "forwarded trusted", allowed: []string{"10.0.0.1"}, trustProxy: true, remote: "127.0.0.1:1", xff: "10.0.0.1, 127.0.0.1", want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AllowOnlyCIDRS(tt.allowed, tt.trustProxy, logger.Nop())(noContent)
			r := httptest.NewRequest(http.MethodPost, "/api/reindex", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if got := serve(h, r); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEnforceHost(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		host    string
		want    int
	}{
		{name: "empty list passes", host: "anything.test", want: http.StatusNoContent},
		{name: "exact", allowed: []string{"admin.linkdex.test"}, host: "admin.linkdex.test", want: http.StatusNoContent},
		{name: "port stripped", allowed: []string{"localhost"}, host: "localhost:8080", want: http.StatusNoContent},
		{name: "wildcard", allowed: []string{"*.linkdex.test"}, host: "ops.linkdex.test", want: http.StatusNoContent},
		{name: "wildcard needs subdomain", allowed: []string{"*.linkdex.test"}, host: "linkdex.test", want: http.StatusForbidden},
		{name: "other host", allowed: []string{"admin.linkdex.test"}, host: "evil.test", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := EnforceHost(tt.allowed, logger.Nop())(noContent)
			r := httptest.NewRequest(http.MethodPost, "/api/reindex", nil)
			r.Host = tt.host
			if got := serve(h, r); got != tt.want {
				t.Errorf("status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	h := RateLimit(RateLimitConfig{
		Burst:        2,
		RefillPerMin: 60,
		Now:          func() time.Time { return now },
	})(noContent)

	request := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/catalog/submit", nil)
		r.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := request("10.0.0.1:1"); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status = %d, want %d", i, rec.Code, http.StatusNoContent)
		}
	}

	rec := request("10.0.0.1:2")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("burst exceeded: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want %q", got, "1")
	}

	if rec := request("10.0.0.2:1"); rec.Code != http.StatusNoContent {
		t.Errorf("other client: status = %d, want %d", rec.Code, http.StatusNoContent)
	}

	now = now.Add(time.Second)
	if rec := request("10.0.0.1:3"); rec.Code != http.StatusNoContent {
		t.Errorf("after refill: status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}
