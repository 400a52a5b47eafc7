package booking

import (
	"time"

	"github.com/camelia-studio/camelia/pkg/timewindow"
)

// Operating window and slot granularity for availability calculation.
const (
	OpeningHour = 9
	ClosingHour = 18
	SlotStep    = 30 * time.Minute
)

// Slot is a fixed-length candidate appointment interval.
type Slot struct {
	Start     time.Time
	Available bool
}

// Availability is the computed slot grid for one service and day, plus the
// raw booked intervals for client display.
type Availability struct {
	ServiceID string
	Date      time.Time
	Duration  time.Duration
	Slots     []Slot
	Booked    []timewindow.Interval
}

// DaySlots generates the candidate slots for one calendar day. Candidates
// start at OpeningHour and advance by SlotStep; any candidate whose end
// would pass ClosingHour is discarded. A candidate is unavailable when its
// [start, start+duration) interval overlaps any booked interval under
// half-open semantics.
//
// The function is pure: it reads nothing but its arguments and is safe to
// call repeatedly.
func DaySlots(day time.Time, duration time.Duration, booked []timewindow.Interval) []Slot {
	open := time.Date(day.Year(), day.Month(), day.Day(), OpeningHour, 0, 0, 0, day.Location())
	close := time.Date(day.Year(), day.Month(), day.Day(), ClosingHour, 0, 0, 0, day.Location())

	var slots []Slot
	for start := open; !start.Add(duration).After(close); start = start.Add(SlotStep) {
		candidate := timewindow.Interval{Start: start, End: start.Add(duration)}
		slots = append(slots, Slot{
			Start:     start,
			Available: !candidate.OverlapsAny(booked),
		})
	}
	return slots
}

// Conflicts reports whether a proposed [start, end) interval overlaps any of
// the given bookings. Cancelled bookings never conflict.
func Conflicts(start, end time.Time, existing []Booking) bool {
	proposed := timewindow.Interval{Start: start, End: end}
	for i := range existing {
		if existing[i].Status == StatusCancelled {
			continue
		}
		if proposed.Overlaps(existing[i].Interval()) {
			return true
		}
	}
	return false
}
