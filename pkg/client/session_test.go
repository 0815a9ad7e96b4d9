package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roomshare/roomshare-api/pkg/protocol"
)

func TestSession(t *testing.T) {
	var s Session
	assert.False(t, s.Active())
	_, ok := s.User()
	assert.False(t, ok)

	s.Set("tok-1", protocol.UserSummary{ID: "u1", Email: "alice@example.com"})
	assert.True(t, s.Active())
	assert.Equal(t, "tok-1", s.AccessToken())
	user, ok := s.User()
	assert.True(t, ok)
	assert.Equal(t, "alice@example.com", user.Email)

	assert.False(t, s.UpdateAccessToken("tok-0", "tok-2"), "stale prev must not win")
	assert.Equal(t, "tok-1", s.AccessToken())

	assert.True(t, s.UpdateAccessToken("tok-1", "tok-2"))
	assert.Equal(t, "tok-2", s.AccessToken())

	s.Clear()
	assert.False(t, s.Active())
	assert.False(t, s.UpdateAccessToken("tok-2", "tok-3"), "cleared session stays cleared")
	_, ok = s.User()
	assert.False(t, ok)
}

func TestSession_ClearIf(t *testing.T) {
	var s Session
	assert.False(t, s.ClearIf(""), "empty session has nothing to clear")

	s.Set("tok-1", protocol.UserSummary{ID: "u1"})
	assert.False(t, s.ClearIf("tok-0"))
	assert.True(t, s.Active())

	assert.True(t, s.ClearIf("tok-1"))
	assert.False(t, s.Active())
	assert.False(t, s.ClearIf("tok-1"), "second caller loses")
}
