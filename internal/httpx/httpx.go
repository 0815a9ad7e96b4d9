// Package httpx holds the JSON request/response helpers shared by the REST
// handlers and middleware.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/errmap"
	"github.com/roomshare/roomshare-api/internal/observability"
)

// ReadJSON decodes a single JSON object from the request body into out.
// Bodies over domain.MaxRequestBody, unknown fields, and trailing data are
// rejected with domain.ErrInvalidInput.
func ReadJSON(w http.ResponseWriter, r *http.Request, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxRequestBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(out); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes: %w", maxErr.Limit, domain.ErrInvalidInput)
		case errors.Is(err, io.EOF):
			return fmt.Errorf("request body is empty: %w", domain.ErrInvalidInput)
		default:
			return fmt.Errorf("decode request body: %v: %w", err, domain.ErrInvalidInput)
		}
	}
	if dec.More() {
		return fmt.Errorf("request body has trailing data: %w", domain.ErrInvalidInput)
	}
	return nil
}

// WriteJSON writes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// WriteError maps err through errmap and writes the JSON error body.
// Server-side failures are logged with the full error.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	WriteHTTPError(w, r, errmap.ToHTTPError(err), err)
}

// WriteHTTPError writes an already-mapped error. cause is only logged.
func WriteHTTPError(w http.ResponseWriter, r *http.Request, he errmap.HTTPError, cause error) {
	logger := observability.LoggerFromContext(r.Context())
	if he.StatusCode >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", he.StatusCode),
			slog.Any("error", cause),
		)
	} else {
		logger.Debug("request rejected",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("code", he.Code),
			slog.Any("error", cause),
		)
	}
	WriteJSON(w, he.StatusCode, he.Response())
}

// ClientIP returns the address of the TCP peer. Forwarding headers are
// ignored here; RealIP middleware rewrites RemoteAddr for trusted proxies.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ForwardedClientIP resolves the originating client when the peer is one of
// the trusted proxies. X-Forwarded-For is walked from the right and the first
// hop outside trusted wins. An untrusted peer is returned as is.
func ForwardedClientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := ClientIP(r)
	if !isTrusted(peer, trusted) {
		return peer
	}

	hops := strings.Split(strings.Join(r.Header.Values("X-Forwarded-For"), ","), ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if _, err := netip.ParseAddr(hop); err != nil {
			break
		}
		client = hop
		if !isTrusted(hop, trusted) {
			break
		}
	}
	return client
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
