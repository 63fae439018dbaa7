package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventStart_WallClockOnDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tz database unavailable")
	}

	// Clocks jump from 02:00 to 03:00 on 2024-03-10.
	got := EventStart("2024-03-10", "09:00", loc)
	assert.Equal(t, 9, got.Hour())
	assert.True(t, got.Equal(time.Date(2024, 3, 10, 9, 0, 0, 0, loc)))

	got = EventStart("2024-11-03", "18:30:15", loc)
	assert.Equal(t, "18:30:15", got.Format("15:04:05"))
}

func TestEventStart_Fallbacks(t *testing.T) {
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), EventStart("2024-06-01", "", time.UTC))
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), EventStart("2024-06-01", "noon", time.UTC))
	assert.True(t, EventStart("June 1", "09:00", time.UTC).IsZero())
}

func TestEvent_IsUpcoming(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, Event{StartsAt: now}.IsUpcoming(now))
	assert.False(t, Event{StartsAt: now.Add(-time.Second)}.IsUpcoming(now))
}
