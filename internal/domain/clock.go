package domain

import "time"

// Clock provides the current time. Token issuance and verification read time
// only through a Clock so expiry can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time {
	return time.Now()
}

// NowUTC returns the clock's current time in UTC truncated to seconds, the
// precision used for persisted timestamps and JWT NumericDates.
func NowUTC(c Clock) time.Time {
	return c.Now().UTC().Truncate(time.Second)
}

var _ Clock = RealClock{}
