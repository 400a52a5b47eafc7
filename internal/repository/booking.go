package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camelia-studio/camelia/internal/domain/booking"
)

const (
	lockServiceSQL = `SELECT id FROM services WHERE id = $1 FOR UPDATE`

	countActiveOnDaySQL = `SELECT COUNT(*) FROM bookings
		WHERE service_id = $1 AND booking_date = $2 AND status <> 'CANCELLED' AND id <> $3`

	insertBookingSQL = `INSERT INTO bookings (id, booking_number, service_id, user_id,
		client_name, client_phone, client_email, booking_date, start_time, end_time,
		status, location, notes, reminder_sent, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	rescheduleBookingSQL = `UPDATE bookings SET booking_date = $2, start_time = $3,
		end_time = $4, status = $5, location = $6, notes = $7, updated_at = $8
		WHERE id = $1`

	updateBookingSQL = `UPDATE bookings SET status = $2, location = $3, notes = $4,
		updated_at = $5 WHERE id = $1`

	getBookingByIDSQL = `SELECT id, booking_number, service_id, COALESCE(user_id, ''),
		client_name, client_phone, client_email, booking_date, start_time, end_time,
		status, location, notes, reminder_sent, created_at, updated_at
		FROM bookings WHERE id = $1`

	listActiveByServiceDateSQL = `SELECT id, booking_number, service_id, COALESCE(user_id, ''),
		client_name, client_phone, client_email, booking_date, start_time, end_time,
		status, location, notes, reminder_sent, created_at, updated_at
		FROM bookings
		WHERE service_id = $1 AND booking_date = $2 AND status <> 'CANCELLED'
		ORDER BY start_time`

	deleteBookingSQL = `DELETE FROM bookings WHERE id = $1`

	markReminderSentSQL = `UPDATE bookings SET reminder_sent = TRUE, updated_at = now()
		WHERE id = $1`
)

// exclusionViolation is the SQLSTATE raised when an insert or update runs
// into the bookings no-overlap exclusion constraint.
const exclusionViolation = "23P01"

var _ booking.Repository = (*BookingRepository)(nil)

// BookingRepository implements booking.Repository backed by PostgreSQL.
//
// The no-overlap invariant is enforced twice: the exclusion constraint on
// (service_id, tstzrange(start_time, end_time)) rejects the losing writer of
// any race, and the daily cap is counted with the service row locked so two
// racing requests for the last slot of a capped day serialize.
type BookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository returns a BookingRepository that uses the given pool.
func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// Create inserts a booking, enforcing the daily cap and the no-overlap
// constraint in one transaction. Returns booking.ErrSlotTaken when the
// interval is already occupied, or a booking.DailyCapError when the day is
// full.
func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking, cap *int) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := r.checkDailyCap(ctx, tx, b, cap); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, insertBookingSQL,
			b.ID, b.Number, b.ServiceID, b.UserID,
			b.ClientName, b.ClientPhone, b.ClientEmail,
			b.Date, b.StartTime, b.EndTime,
			string(b.Status), b.Location, b.Notes, b.ReminderSent,
			b.CreatedAt, b.UpdatedAt,
		)
		return err
	})
	if err != nil {
		return mapBookingWriteError(err, b.ID)
	}
	return nil
}

// Reschedule moves a booking to a new interval under the same guards as
// Create.
func (r *BookingRepository) Reschedule(ctx context.Context, b *booking.Booking, cap *int) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := r.checkDailyCap(ctx, tx, b, cap); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, rescheduleBookingSQL,
			b.ID, b.Date, b.StartTime, b.EndTime,
			string(b.Status), b.Location, b.Notes, b.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return booking.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return mapBookingWriteError(err, b.ID)
	}
	return nil
}

// checkDailyCap counts the day's non-cancelled bookings with the service row
// locked. Must run inside the same transaction as the write it guards.
func (r *BookingRepository) checkDailyCap(ctx context.Context, tx pgx.Tx, b *booking.Booking, cap *int) error {
	if cap == nil {
		return nil
	}
	if _, err := tx.Exec(ctx, lockServiceSQL, b.ServiceID); err != nil {
		return fmt.Errorf("locking service %q: %w", b.ServiceID, err)
	}
	var count int
	if err := tx.QueryRow(ctx, countActiveOnDaySQL, b.ServiceID, b.Date, b.ID).Scan(&count); err != nil {
		return fmt.Errorf("counting day bookings: %w", err)
	}
	if count >= *cap {
		return &booking.DailyCapError{Cap: *cap}
	}
	return nil
}

func mapBookingWriteError(err error, id string) error {
	var capErr *booking.DailyCapError
	if errors.Is(err, booking.ErrNotFound) || errors.As(err, &capErr) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return booking.ErrSlotTaken
	}
	return fmt.Errorf("writing booking %q: %w", id, err)
}

// GetByID returns a single booking by its identifier.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	rows, err := r.pool.Query(ctx, getBookingByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting booking %q: %w", id, err)
	}

	b, err := pgx.CollectExactlyOneRow(rows, scanBooking)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, fmt.Errorf("getting booking %q: %w", id, err)
	}
	return &b, nil
}

// Update persists mutable fields without touching the occupied interval.
func (r *BookingRepository) Update(ctx context.Context, b *booking.Booking) error {
	tag, err := r.pool.Exec(ctx, updateBookingSQL,
		b.ID, string(b.Status), b.Location, b.Notes, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating booking %q: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// Delete removes a booking.
func (r *BookingRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteBookingSQL, id)
	if err != nil {
		return fmt.Errorf("deleting booking %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

// ListActiveByServiceDate returns the service's non-cancelled bookings on
// the given calendar day, ordered by start time.
func (r *BookingRepository) ListActiveByServiceDate(ctx context.Context, serviceID string, day time.Time) ([]booking.Booking, error) {
	rows, err := r.pool.Query(ctx, listActiveByServiceDateSQL, serviceID, day)
	if err != nil {
		return nil, fmt.Errorf("listing bookings for service %q: %w", serviceID, err)
	}
	return pgx.CollectRows(rows, scanBooking)
}

// MarkReminderSent flags a booking's reminder as delivered.
func (r *BookingRepository) MarkReminderSent(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, markReminderSentSQL, id)
	if err != nil {
		return fmt.Errorf("marking reminder sent for booking %q: %w", id, err)
	}
	return nil
}

func scanBooking(row pgx.CollectableRow) (booking.Booking, error) {
	var (
		b      booking.Booking
		status string
	)
	err := row.Scan(
		&b.ID, &b.Number, &b.ServiceID, &b.UserID,
		&b.ClientName, &b.ClientPhone, &b.ClientEmail,
		&b.Date, &b.StartTime, &b.EndTime,
		&status, &b.Location, &b.Notes, &b.ReminderSent,
		&b.CreatedAt, &b.UpdatedAt,
	)
	b.Status = booking.Status(status)
	return b, err
}
