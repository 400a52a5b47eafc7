package booking

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrServiceNotFound is returned when a referenced bookable service does not exist.
var ErrServiceNotFound = errors.New("service not found")

// ErrServiceUnavailable is returned when a service exists but is not
// currently accepting bookings.
var ErrServiceUnavailable = errors.New("service is not available for booking")

// Service is a bookable offering published by a provider. Duration and price
// are captured onto each booking at creation time; later edits to the service
// never rewrite existing bookings.
type Service struct {
	ID         string
	ProviderID string
	Name       string
	Duration   time.Duration
	Price      decimal.Decimal
	Available  bool

	// MaxBookingsPerDay caps non-cancelled bookings per calendar day.
	// Nil means uncapped.
	MaxBookingsPerDay *int
	// AdvanceBookingDays limits how far ahead of today a booking may be
	// placed. Nil means no horizon.
	AdvanceBookingDays *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ServiceRepository provides read access to bookable services.
type ServiceRepository interface {
	GetByID(ctx context.Context, id string) (*Service, error)
}
