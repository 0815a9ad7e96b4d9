// Package client is a Go client for the roomshare API. It keeps the access
// token in memory, lets a cookie jar carry the refresh cookie, and renews an
// expired access token transparently.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"

	"github.com/roomshare/roomshare-api/pkg/protocol"
)

// SessionExpiredMessage is passed to OnSessionExpired when the session ends.
const SessionExpiredMessage = "Session expired. Please login again."

const (
	defaultTimeout = 30 * time.Second
	refreshTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
	refreshKey     = "refresh"
)

// ErrSessionExpired is returned by Do when the access token was rejected and
// could not be renewed. The session has been cleared.
var ErrSessionExpired = errors.New("session expired")

// APIError is a non-2xx response decoded from the API's error envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Config configures a Client.
type Config struct {
	// BaseURL is the API root including its prefix, e.g. "https://host/api".
	BaseURL string

	// HTTPClient is optional. A cookie jar is attached when it has none.
	HTTPClient *http.Client

	// OnSessionExpired runs once each time the session ends because its
	// credentials were rejected, after the session has been cleared.
	OnSessionExpired func(message string)

	Logger *slog.Logger
}

// Client calls the roomshare API on behalf of one user session.
type Client struct {
	base      *url.URL
	http      *http.Client
	session   *Session
	onExpired func(string)
	logger    *slog.Logger
	refreshes singleflight.Group
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q: scheme and host are required", cfg.BaseURL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc.Jar = jar
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	onExpired := cfg.OnSessionExpired
	if onExpired == nil {
		onExpired = func(string) {}
	}

	return &Client{
		base:      base,
		http:      hc,
		session:   &Session{},
		onExpired: onExpired,
		logger:    logger,
	}, nil
}

// Session returns the client's session.
func (c *Client) Session() *Session { return c.session }

// CloseIdleConnections closes idle keep-alive connections.
func (c *Client) CloseIdleConnections() { c.http.CloseIdleConnections() }

// Signup creates an account and starts a session.
func (c *Client) Signup(ctx context.Context, in protocol.SignupRequest) (*protocol.SessionResponse, error) {
	return c.startSession(ctx, "/auth/signup", in)
}

// Signin starts a session.
func (c *Client) Signin(ctx context.Context, in protocol.SigninRequest) (*protocol.SessionResponse, error) {
	return c.startSession(ctx, "/auth/signin", in)
}

func (c *Client) startSession(ctx context.Context, path string, in any) (*protocol.SessionResponse, error) {
	var out protocol.SessionResponse
	if err := c.call(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	c.session.Set(out.AccessToken, out.User)
	return &out, nil
}

// Signout ends the session. The local session is cleared even when the
// server cannot be reached.
func (c *Client) Signout(ctx context.Context) error {
	defer c.session.Clear()
	return c.call(ctx, http.MethodPost, "/auth/signout", nil, nil)
}

// Refresh exchanges the refresh cookie for a new access token and stores it.
// Concurrent callers share one request.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	return c.refreshFrom(ctx, c.session.AccessToken())
}

// GetJSON performs an authenticated GET and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.SendJSON(ctx, http.MethodGet, path, nil, out)
}

// SendJSON performs an authenticated request with an optional JSON body and
// decodes a 2xx response into out when out is non-nil.
func (c *Client) SendJSON(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// Do sends req with the current access token. When the API answers 401
// TOKEN_EXPIRED, Do refreshes once and replays the request with the new
// token. Any other credential rejection of a request that carried a token
// ends the session and returns ErrSessionExpired. Every other response,
// PERMISSION_DENIED included, is returned unchanged.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	stale := c.session.AccessToken()
	resp, err := c.send(req, body, stale)
	if err != nil {
		return nil, err
	}
	apiErr, err := credentialRejection(resp, stale)
	if err != nil {
		return nil, err
	}
	if apiErr == nil {
		return resp, nil
	}
	drain(resp)
	if apiErr.Code != protocol.CodeTokenExpired {
		return nil, c.expire(req.Context(), stale, apiErr)
	}

	fresh, err := c.refreshFrom(req.Context(), stale)
	if err != nil {
		return nil, err
	}
	resp, err = c.send(req, body, fresh)
	if err != nil {
		return nil, err
	}
	apiErr, err = credentialRejection(resp, fresh)
	if err != nil {
		return nil, err
	}
	if apiErr == nil {
		return resp, nil
	}
	drain(resp)
	return nil, c.expire(req.Context(), fresh, apiErr)
}

// credentialRejection returns the decoded error when resp rejects the
// credential a request was sent with. A nil error and nil *APIError mean
// resp should go back to the caller as is.
func credentialRejection(resp *http.Response, token string) (*APIError, error) {
	if token == "" {
		return nil, nil
	}
	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return nil, nil
	}
	apiErr, err := peekError(resp)
	if err != nil {
		return nil, err
	}
	switch apiErr.Code {
	case protocol.CodeTokenExpired, protocol.CodeInvalidToken, protocol.CodeNoToken:
		return apiErr, nil
	}
	return nil, nil
}

// expire ends the session that token belonged to. Only the caller that
// actually clears it notifies OnSessionExpired.
func (c *Client) expire(ctx context.Context, token string, cause *APIError) error {
	if c.session.ClearIf(token) {
		c.logger.WarnContext(ctx, "client.session_rejected", "code", cause.Code)
		c.onExpired(SessionExpiredMessage)
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
}

// refreshFrom renews the access token that was current when the caller
// sent its request. A caller whose token has already been replaced reuses
// the replacement.
func (c *Client) refreshFrom(ctx context.Context, stale string) (string, error) {
	if cur, done, err := c.settled(stale); done {
		return cur, err
	}

	ch := c.refreshes.DoChan(refreshKey, func() (any, error) {
		if cur, done, err := c.settled(stale); done {
			return cur, err
		}

		// Finish the refresh even if the triggering caller gives up, so
		// the other waiters still get a result.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		token, err := c.requestRefresh(rctx)
		if err != nil {
			c.logger.WarnContext(rctx, "client.refresh_failed", "error", err)
			if stale == "" || c.session.ClearIf(stale) {
				c.onExpired(SessionExpiredMessage)
			}
			return "", fmt.Errorf("%w: %v", ErrSessionExpired, err)
		}
		c.session.UpdateAccessToken(stale, token)
		c.logger.DebugContext(rctx, "client.refreshed")
		return token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// settled reports whether the session moved on since stale was read: either
// another refresh already replaced it, or the session was cleared.
func (c *Client) settled(stale string) (string, bool, error) {
	cur := c.session.AccessToken()
	switch {
	case cur != "" && cur != stale:
		return cur, true, nil
	case cur == "" && stale != "":
		return "", true, ErrSessionExpired
	}
	return "", false, nil
}

func (c *Client) requestRefresh(ctx context.Context) (string, error) {
	var out protocol.RefreshResponse
	if err := c.call(ctx, http.MethodPost, "/auth/refresh", nil, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("refresh response carried no access token")
	}
	return out.AccessToken, nil
}

// call sends an unauthenticated request outside the retry path.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return decodeResponse(resp, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send clones req with a fresh copy of body and the given bearer token.
func (c *Client) send(req *http.Request, body []byte, token string) (*http.Response, error) {
	r := req.Clone(req.Context())
	if body != nil {
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	} else {
		r.Header.Del("Authorization")
	}

	resp, err := c.http.Do(r)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	return resp, nil
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return body, nil
}

// peekError decodes the error envelope and restores resp.Body so the
// response can still be handed back to the caller.
func peekError(resp *http.Response) (*APIError, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read error response: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	return parseError(resp.StatusCode, raw), nil
}

func parseError(status int, raw []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var env protocol.ErrorResponse
	if json.Unmarshal(raw, &env) == nil {
		apiErr.Code = env.Code
		apiErr.Message = env.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		return parseError(resp.StatusCode, raw)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
