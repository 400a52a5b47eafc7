package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/camelia-studio/camelia/internal/domain/authz"
	"github.com/camelia-studio/camelia/pkg/timewindow"
)

// Notifier receives booking lifecycle events. Implementations must be
// best-effort and non-blocking; the scheduler never inspects the outcome.
type Notifier interface {
	BookingCreated(ctx context.Context, b *Booking)
	BookingStatusChanged(ctx context.Context, b *Booking, from Status)
}

// CreateRequest holds the input for creating a booking.
type CreateRequest struct {
	ServiceID string
	Date      time.Time
	StartTime time.Time
	Location  string
	Notes     string

	// Guest contact fields, required when the actor is anonymous.
	ClientName  string
	ClientPhone string
	ClientEmail string
}

// UpdateRequest holds a partial booking mutation. Nil fields are untouched.
// StartClock is an HH:MM wall-clock time anchored to the booking's
// (possibly updated) date; moving only the date keeps the wall-clock time.
type UpdateRequest struct {
	Status     *Status
	Date       *time.Time
	StartClock *string
	Location   *string
	Notes      *string
}

// Scheduler validates booking requests against the service's constraints and
// drives the booking lifecycle. Conflict and cap invariants are enforced by
// the Repository inside its transaction; the scheduler handles everything
// checkable without racing another writer.
type Scheduler struct {
	services ServiceRepository
	bookings Repository
	notifier Notifier
	now      func() time.Time
}

// NewScheduler creates a Scheduler with the required dependencies.
func NewScheduler(services ServiceRepository, bookings Repository, notifier Notifier) *Scheduler {
	return &Scheduler{
		services: services,
		bookings: bookings,
		notifier: notifier,
		now:      time.Now,
	}
}

// Availability computes the slot grid for a service on the given calendar
// day. It has no side effects.
func (s *Scheduler) Availability(ctx context.Context, serviceID string, date time.Time) (*Availability, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	existing, err := s.bookings.ListActiveByServiceDate(ctx, serviceID, date)
	if err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}

	booked := make([]timewindow.Interval, len(existing))
	for i := range existing {
		booked[i] = existing[i].Interval()
	}

	return &Availability{
		ServiceID: svc.ID,
		Date:      date,
		Duration:  svc.Duration,
		Slots:     DaySlots(date, svc.Duration, booked),
		Booked:    booked,
	}, nil
}

// Create validates the request and persists a new PENDING booking. The
// repository rejects overlapping intervals and full days transactionally.
func (s *Scheduler) Create(ctx context.Context, req CreateRequest, actor authz.Actor) (*Booking, error) {
	svc, err := s.services.GetByID(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.Available {
		return nil, ErrServiceUnavailable
	}

	if actor.IsGuest() && (req.ClientName == "" || req.ClientPhone == "" || req.ClientEmail == "") {
		return nil, ErrGuestContactRequired
	}

	if !timewindow.SameDay(req.Date, req.StartTime) {
		return nil, ErrDateMismatch
	}

	if svc.AdvanceBookingDays != nil {
		horizon := timewindow.DayBounds(s.now()).Start.AddDate(0, 0, *svc.AdvanceBookingDays)
		if req.Date.After(horizon) {
			return nil, &AdvanceWindowError{Days: *svc.AdvanceBookingDays}
		}
	}

	now := s.now()
	b := &Booking{
		ID:          uuid.New().String(),
		Number:      newBookingNumber(now),
		ServiceID:   svc.ID,
		UserID:      actor.ID,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		ClientEmail: req.ClientEmail,
		Date:        timewindow.DayBounds(req.Date).Start,
		StartTime:   req.StartTime,
		EndTime:     req.StartTime.Add(svc.Duration),
		Status:      StatusPending,
		Location:    req.Location,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.checkSlotFree(ctx, b); err != nil {
		return nil, err
	}

	if err := s.bookings.Create(ctx, b, svc.MaxBookingsPerDay); err != nil {
		return nil, err
	}

	s.notifier.BookingCreated(ctx, b)
	return b, nil
}

// Update applies a partial mutation to a booking. Date or start-time changes
// recompute the end time from the service's current duration and re-run the
// conflict guard. Status changes follow the lifecycle transitions; moving a
// booking forward (confirm, complete) is reserved to the provider or an
// admin, while cancellation is open to the owner as well.
func (s *Scheduler) Update(ctx context.Context, id string, req UpdateRequest, actor authz.Actor) (*Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	svc, err := s.services.GetByID(ctx, b.ServiceID)
	if err != nil {
		return nil, err
	}

	resource := authz.Resource{OwnerID: b.UserID, ProviderID: svc.ProviderID}
	if err := authz.Allow(actor, resource, authz.ActionUpdate); err != nil {
		return nil, err
	}

	from := b.Status
	if req.Status != nil && *req.Status != from {
		target := *req.Status
		if !target.Valid() || !from.CanTransition(target) {
			return nil, &InvalidTransitionError{From: from, To: target}
		}
		if target != StatusCancelled && !isProviderOrAdmin(actor, svc) {
			return nil, authz.ErrForbidden
		}
		b.Status = target
	}

	reschedule := false
	if req.Date != nil || req.StartClock != nil {
		if req.Date != nil {
			b.Date = timewindow.DayBounds(*req.Date).Start
		}
		clock := timewindow.Clock(b.StartTime)
		if req.StartClock != nil {
			clock = *req.StartClock
		}
		start, err := timewindow.ParseClock(b.Date, clock)
		if err != nil {
			return nil, ErrInvalidStartTime
		}
		b.StartTime = start
		b.EndTime = start.Add(svc.Duration)
		reschedule = true
	}

	if req.Location != nil {
		b.Location = *req.Location
	}
	if req.Notes != nil {
		b.Notes = *req.Notes
	}
	b.UpdatedAt = s.now()

	if reschedule {
		if err := s.checkSlotFree(ctx, b); err != nil {
			return nil, err
		}
		err = s.bookings.Reschedule(ctx, b, svc.MaxBookingsPerDay)
	} else {
		err = s.bookings.Update(ctx, b)
	}
	if err != nil {
		return nil, err
	}

	if b.Status != from {
		s.notifier.BookingStatusChanged(ctx, b, from)
	}
	return b, nil
}

// Remove deletes a booking. Only the owner, the provider, or an admin may
// remove one.
func (s *Scheduler) Remove(ctx context.Context, id string, actor authz.Actor) error {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	svc, err := s.services.GetByID(ctx, b.ServiceID)
	if err != nil {
		return err
	}

	resource := authz.Resource{OwnerID: b.UserID, ProviderID: svc.ProviderID}
	if err := authz.Allow(actor, resource, authz.ActionDelete); err != nil {
		return err
	}

	return s.bookings.Delete(ctx, id)
}

// checkSlotFree is the pre-transaction conflict check, giving the common
// case a friendly rejection without opening a write transaction. The
// datastore's exclusion constraint stays authoritative for races.
func (s *Scheduler) checkSlotFree(ctx context.Context, b *Booking) error {
	existing, err := s.bookings.ListActiveByServiceDate(ctx, b.ServiceID, b.Date)
	if err != nil {
		return errors.Wrap(err, "list bookings")
	}
	others := make([]Booking, 0, len(existing))
	for i := range existing {
		if existing[i].ID != b.ID {
			others = append(others, existing[i])
		}
	}
	if Conflicts(b.StartTime, b.EndTime, others) {
		return ErrSlotTaken
	}
	return nil
}

func isProviderOrAdmin(actor authz.Actor, svc *Service) bool {
	return actor.Role == authz.RoleAdmin || (!actor.IsGuest() && actor.ID == svc.ProviderID)
}

// newBookingNumber builds a human-readable booking number from the creation
// date and a random suffix. Global uniqueness is guaranteed by the unique
// index on the column, not by this generator.
func newBookingNumber(now time.Time) string {
	var suffix [3]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("BK-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(suffix[:])))
}
