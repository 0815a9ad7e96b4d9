// Package domaintest provides test doubles for the domain package.
package domaintest

import (
	"sync"
	"time"

	"github.com/roomshare/roomshare-api/internal/domain"
)

// FakeClock is a manually driven domain.Clock. Token lifetimes are checked
// against it, so tests expire credentials by moving it rather than sleeping.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock returns a FakeClock reading start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// AdvancePast moves the clock one second beyond d, enough to clear the
// second-resolution exp claim of a token minted at the current time.
func (c *FakeClock) AdvancePast(d time.Duration) {
	c.Advance(d + time.Second)
}

// Set rewinds or forwards the clock to t.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

var _ domain.Clock = (*FakeClock)(nil)
