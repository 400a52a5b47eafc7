package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/camelia-studio/camelia/pkg/timewindow"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// transitions lists the allowed status changes. CANCELLED and COMPLETED are
// terminal: no transition leads out of them.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// Valid reports whether s is a known booking status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed out of s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// CanTransition reports whether a booking in status s may move to target.
func (s Status) CanTransition(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Sentinel errors shared by the scheduler and its repositories.
var (
	// ErrNotFound is returned when a booking does not exist.
	ErrNotFound = errors.New("booking not found")
	// ErrSlotTaken is returned when the requested interval overlaps an
	// existing non-cancelled booking for the same service. The losing side
	// of a concurrent race gets this from the datastore guard.
	ErrSlotTaken = errors.New("time slot already booked")
	// ErrGuestContactRequired is returned when an anonymous booking request
	// omits the client name, phone, or email.
	ErrGuestContactRequired = errors.New("client name, phone and email are required for guest bookings")
	// ErrDateMismatch is returned when the booking date and the start time
	// fall on different calendar days.
	ErrDateMismatch = errors.New("booking date must match the start time's calendar day")
	// ErrInvalidStartTime is returned when a start time cannot be parsed.
	ErrInvalidStartTime = errors.New("invalid start time, expected HH:MM")
)

// DailyCapError indicates the service's per-day booking cap has been reached.
type DailyCapError struct {
	Cap int
}

func (e *DailyCapError) Error() string {
	return fmt.Sprintf("daily booking limit of %d reached", e.Cap)
}

// AdvanceWindowError indicates the requested date is beyond the service's
// advance-booking horizon.
type AdvanceWindowError struct {
	Days int
}

func (e *AdvanceWindowError) Error() string {
	return fmt.Sprintf("bookings are accepted at most %d days in advance", e.Days)
}

// InvalidTransitionError indicates a disallowed status change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition booking from %s to %s", e.From, e.To)
}

// Booking is a reserved appointment for a service. EndTime is always derived
// from StartTime plus the service duration captured at write time.
type Booking struct {
	ID        string
	Number    string
	ServiceID string

	// UserID is empty for guest bookings; the client contact fields then
	// substitute for identity.
	UserID      string
	ClientName  string
	ClientPhone string
	ClientEmail string

	Date      time.Time // calendar day, midnight in the booking's location
	StartTime time.Time
	EndTime   time.Time

	Status       Status
	Location     string
	Notes        string
	ReminderSent bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interval returns the booking's occupied [StartTime, EndTime) interval.
func (b *Booking) Interval() timewindow.Interval {
	return timewindow.Interval{Start: b.StartTime, End: b.EndTime}
}

// Repository defines persistence for bookings. Create and Reschedule must
// enforce the no-overlap and daily-cap invariants transactionally: a losing
// concurrent writer gets ErrSlotTaken or DailyCapError, never a silent
// double booking.
type Repository interface {
	Create(ctx context.Context, b *Booking, cap *int) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	// Update persists mutable fields without touching the occupied interval.
	Update(ctx context.Context, b *Booking) error
	// Reschedule persists a new date/start/end under the same conflict
	// guard as Create.
	Reschedule(ctx context.Context, b *Booking, cap *int) error
	Delete(ctx context.Context, id string) error
	// ListActiveByServiceDate returns all non-cancelled bookings for the
	// service on the given calendar day, ordered by start time.
	ListActiveByServiceDate(ctx context.Context, serviceID string, day time.Time) ([]Booking, error)
	// MarkReminderSent flags a booking once its reminder has been delivered.
	MarkReminderSent(ctx context.Context, id string) error
}
