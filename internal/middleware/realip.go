package middleware

import (
	"net"
	"net/http"
	"net/netip"

	"github.com/roomshare/roomshare-api/internal/httpx"
)

// RealIP rewrites RemoteAddr to the forwarded client address when the peer
// is a trusted proxy. With no trusted proxies the handler is returned as is
// and X-Forwarded-For is never consulted.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip := httpx.ForwardedClientIP(r, trusted); ip != httpx.ClientIP(r) {
				r2 := r.Clone(r.Context())
				r2.RemoteAddr = net.JoinHostPort(ip, "0")
				r = r2
			}
			next.ServeHTTP(w, r)
		})
	}
}
