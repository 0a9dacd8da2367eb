package cronclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	clock := New()

	assert.NoError(t, clock.Validate("0 9 * * *"))
	assert.NoError(t, clock.Validate("*/5 * * * 1-5"))

	assert.Error(t, clock.Validate("not a cron"))
	assert.Error(t, clock.Validate("0 9 * *"))
	// descriptors are not part of the 5-field grammar
	assert.Error(t, clock.Validate("@daily"))
}

func TestNext(t *testing.T) {
	clock := New()
	after := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	next, err := clock.Next("0 9 * * *", "", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), next)

	// already past 09:00 in New York at 08:30 UTC? 08:30 UTC is 03:30 EST,
	// so the next 09:00 local is the same day.
	nyNext, err := clock.Next("0 9 * * *", "America/New_York", after)
	require.NoError(t, err)
	loc, _ := time.LoadLocation("America/New_York")
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, loc), nyNext)

	_, err = clock.Next("0 9 * * *", "Not/AZone", after)
	assert.Error(t, err)
}

func TestNextN(t *testing.T) {
	clock := New()
	after := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)

	occ, err := clock.NextN("0 9 * * *", "", after, 3)
	require.NoError(t, err)
	require.Len(t, occ, 3)
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC), occ[0])
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), occ[1])
	assert.Equal(t, time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC), occ[2])

	for i := 1; i < len(occ); i++ {
		assert.True(t, occ[i].After(occ[i-1]))
	}
}
