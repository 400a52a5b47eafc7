// Package timewindow provides calendar-boundary helpers and half-open
// interval arithmetic shared by slot generation and reporting.
package timewindow

import (
	"time"

	"github.com/go-faster/errors"
)

// Interval is a half-open time interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether i and other intersect under half-open semantics.
// Touching endpoints do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// OverlapsAny reports whether i intersects any of the given intervals.
func (i Interval) OverlapsAny(others []Interval) bool {
	for _, o := range others {
		if i.Overlaps(o) {
			return true
		}
	}
	return false
}

// Duration returns End - Start.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// DayBounds returns the [midnight, next midnight) interval containing t,
// in t's location.
func DayBounds(t time.Time) Interval {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// WeekBounds returns the [Monday midnight, next Monday midnight) interval
// containing t, in t's location.
func WeekBounds(t time.Time) Interval {
	day := DayBounds(t).Start
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	start := day.AddDate(0, 0, -offset)
	return Interval{Start: start, End: start.AddDate(0, 0, 7)}
}

// MonthBounds returns the [first of month, first of next month) interval
// containing t, in t's location.
func MonthBounds(t time.Time) Interval {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Interval{Start: start, End: start.AddDate(0, 1, 0)}
}

// ParseDate parses a YYYY-MM-DD calendar day in the given location.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parse date")
	}
	return t, nil
}

// ParseClock parses an HH:MM wall-clock string and returns the instant on
// day's calendar date at that time, in day's location.
func ParseClock(day time.Time, s string) (time.Time, error) {
	c, err := time.Parse("15:04", s)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "parse clock")
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		c.Hour(), c.Minute(), 0, 0, day.Location()), nil
}

// Clock formats t's wall-clock time as HH:MM.
func Clock(t time.Time) string {
	return t.Format("15:04")
}

// SameDay reports whether a and b fall on the same calendar date in a's
// location.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
