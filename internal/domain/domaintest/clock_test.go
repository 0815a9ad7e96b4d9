package domaintest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roomshare/roomshare-api/internal/domain"
	"github.com/roomshare/roomshare-api/internal/domain/domaintest"
)

func TestFakeClock(t *testing.T) {
	start := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	clock := domaintest.NewFakeClock(start)
	assert.Equal(t, start, clock.Now())

	clock.Advance(time.Minute)
	assert.Equal(t, start.Add(time.Minute), clock.Now())

	clock.Set(start)
	clock.AdvancePast(domain.AccessTokenLifetime)
	assert.True(t, clock.Now().After(start.Add(domain.AccessTokenLifetime)))
}
