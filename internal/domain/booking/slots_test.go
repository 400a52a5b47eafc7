package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camelia-studio/camelia/pkg/timewindow"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(d time.Time, hour, min int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), hour, min, 0, 0, d.Location())
}

func TestDaySlots_EmptyDay(t *testing.T) {
	d := day(2026, time.March, 2)

	slots := DaySlots(d, 30*time.Minute, nil)

	// 09:00 through 17:30 inclusive at 30-minute steps.
	require.Len(t, slots, 18)
	assert.Equal(t, at(d, 9, 0), slots[0].Start)
	assert.Equal(t, at(d, 17, 30), slots[len(slots)-1].Start)
	for _, s := range slots {
		assert.True(t, s.Available, "slot %s", s.Start)
	}
}

func TestDaySlots_LongDurationTrimsTail(t *testing.T) {
	d := day(2026, time.March, 2)

	slots := DaySlots(d, 2*time.Hour, nil)

	// Last candidate whose end fits before 18:00 starts at 16:00.
	require.NotEmpty(t, slots)
	assert.Equal(t, at(d, 16, 0), slots[len(slots)-1].Start)
}

func TestDaySlots_DurationLongerThanDay(t *testing.T) {
	d := day(2026, time.March, 2)

	slots := DaySlots(d, 10*time.Hour, nil)
	assert.Empty(t, slots)
}

func TestDaySlots_BookedIntervalBlocksOverlaps(t *testing.T) {
	d := day(2026, time.March, 2)
	booked := []timewindow.Interval{
		{Start: at(d, 10, 0), End: at(d, 11, 0)},
	}

	slots := DaySlots(d, time.Hour, booked)

	avail := make(map[string]bool, len(slots))
	for _, s := range slots {
		avail[timewindow.Clock(s.Start)] = s.Available
	}

	// A 60-minute candidate at 09:30 would run into the 10:00 booking.
	assert.True(t, avail["09:00"])
	assert.False(t, avail["09:30"])
	assert.False(t, avail["10:00"])
	assert.False(t, avail["10:30"])
	// Touching endpoints do not conflict: 11:00 starts exactly at the end.
	assert.True(t, avail["11:00"])
}

func TestConflicts(t *testing.T) {
	d := day(2026, time.March, 2)
	existing := []Booking{
		{StartTime: at(d, 10, 0), EndTime: at(d, 11, 0), Status: StatusConfirmed},
		{StartTime: at(d, 14, 0), EndTime: at(d, 15, 0), Status: StatusCancelled},
	}

	assert.True(t, Conflicts(at(d, 10, 30), at(d, 11, 30), existing))
	assert.False(t, Conflicts(at(d, 11, 0), at(d, 12, 0), existing))
	// Cancelled bookings never conflict.
	assert.False(t, Conflicts(at(d, 14, 0), at(d, 15, 0), existing))
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransition(StatusConfirmed))
	assert.True(t, StatusPending.CanTransition(StatusCancelled))
	assert.True(t, StatusConfirmed.CanTransition(StatusCompleted))
	assert.True(t, StatusConfirmed.CanTransition(StatusCancelled))

	assert.False(t, StatusPending.CanTransition(StatusCompleted))
	assert.False(t, StatusCompleted.CanTransition(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransition(StatusPending))

	assert.True(t, StatusCancelled.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.False(t, StatusPending.Terminal())
}
