package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/linkdex/internal/logger"
)

func safeBrowsingServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/threatMatches:find", r.URL.Path)
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		var req findRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ThreatInfo.ThreatEntries) != 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.ThreatInfo.ThreatEntries[0].URL == "http://evil.test/" {
			_, _ = w.Write([]byte(`{"matches":[{"threatType":"MALWARE"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSafety_Lookup(t *testing.T) {
	srv := safeBrowsingServer(t, http.StatusOK)
	s := NewSafety(SafetyOptions{APIKey: "k", BaseURL: srv.URL, Production: true}, logger.Nop())
	ctx := context.Background()

	assert.True(t, s.IsSafe(ctx, "http://fine.test/"))
	assert.False(t, s.IsSafe(ctx, "http://evil.test/"))
}

func TestSafety_Policy(t *testing.T) {
	failing := safeBrowsingServer(t, http.StatusInternalServerError)

	tests := []struct {
		name       string
		key        string
		production bool
		want       bool
	}{
		{name: "no key in development", production: false, want: true},
		{name: "no key in production", production: true, want: false},
		{name: "lookup error in development", key: "k", production: false, want: true},
		{name: "lookup error in production", key: "k", production: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSafety(SafetyOptions{APIKey: tt.key, BaseURL: failing.URL, Production: tt.production}, logger.Nop())
			assert.Equal(t, tt.want, s.IsSafe(context.Background(), "http://x.test/"))
		})
	}
}

func TestSafety_NilIsPermissive(t *testing.T) {
	var s *Safety
	assert.True(t, s.IsSafe(context.Background(), "http://x.test/"))
}
