package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roomshare/roomshare-api/internal/httpx"
	"github.com/roomshare/roomshare-api/internal/middleware"
)

func TestRealIP(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		trusted    []netip.Prefix
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"no trusted proxies", nil, "10.0.0.1:80", "198.51.100.2", "10.0.0.1"},
		{"untrusted peer", proxies, "203.0.113.9:80", "198.51.100.2", "203.0.113.9"},
		{"trusted peer", proxies, "10.0.0.1:80", "198.51.100.2", "198.51.100.2"},
		{"trusted peer without header", proxies, "10.0.0.1:80", "", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got = httpx.ClientIP(r)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			middleware.RealIP(tt.trusted)(next).ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}
