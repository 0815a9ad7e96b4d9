package client

import (
	"sync"

	"github.com/roomshare/roomshare-api/pkg/protocol"
)

// Session holds the signed-in user's access token in memory. The refresh
// token lives only in the client's cookie jar. Safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	token string
	user  *protocol.UserSummary
}

// AccessToken returns the current access token, or "" when signed out.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the signed-in user, if any.
func (s *Session) User() (protocol.UserSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return protocol.UserSummary{}, false
	}
	return *s.user, true
}

// Set replaces the whole session after a signin or signup.
func (s *Session) Set(token string, user protocol.UserSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = &user
}

// UpdateAccessToken swaps prev for next. It reports false and leaves the
// session untouched when the current token is no longer prev, so a refresh
// that races a signin or signout cannot clobber it.
func (s *Session) UpdateAccessToken(prev, next string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != prev {
		return false
	}
	s.token = next
	return true
}

// Clear signs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

// ClearIf signs the session out only while token is still current. It
// reports whether it did.
func (s *Session) ClearIf(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" || s.token != token {
		return false
	}
	s.token = ""
	s.user = nil
	return true
}

// Active reports whether an access token is held.
func (s *Session) Active() bool {
	return s.AccessToken() != ""
}
