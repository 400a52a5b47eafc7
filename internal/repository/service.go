package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camelia-studio/camelia/internal/domain/booking"
)

const getServiceByIDSQL = `SELECT id, provider_id, name, duration_minutes, price, available,
	max_bookings_per_day, advance_booking_days, created_at, updated_at
	FROM services WHERE id = $1`

var _ booking.ServiceRepository = (*ServiceRepository)(nil)

// ServiceRepository provides bookable-service lookups backed by PostgreSQL.
type ServiceRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRepository returns a ServiceRepository that uses the given pool.
func NewServiceRepository(pool *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

// GetByID returns a single service by its identifier.
func (r *ServiceRepository) GetByID(ctx context.Context, id string) (*booking.Service, error) {
	rows, err := r.pool.Query(ctx, getServiceByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting service %q: %w", id, err)
	}

	svc, err := pgx.CollectExactlyOneRow(rows, scanService)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrServiceNotFound
		}
		return nil, fmt.Errorf("getting service %q: %w", id, err)
	}
	return &svc, nil
}

func scanService(row pgx.CollectableRow) (booking.Service, error) {
	var (
		svc             booking.Service
		durationMinutes int32
		maxPerDay       *int32
		advanceDays     *int32
	)
	err := row.Scan(
		&svc.ID, &svc.ProviderID, &svc.Name, &durationMinutes, &svc.Price, &svc.Available,
		&maxPerDay, &advanceDays, &svc.CreatedAt, &svc.UpdatedAt,
	)
	svc.Duration = time.Duration(durationMinutes) * time.Minute
	if maxPerDay != nil {
		v := int(*maxPerDay)
		svc.MaxBookingsPerDay = &v
	}
	if advanceDays != nil {
		v := int(*advanceDays)
		svc.AdvanceBookingDays = &v
	}
	return svc, err
}
