package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusPaid       Status = "PAID"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// transitions lists the allowed status changes. DELIVERED and CANCELLED are
// terminal; CANCELLED is reachable from every non-terminal state.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusPaid, StatusCancelled},
	StatusProcessing: {StatusPaid, StatusShipped, StatusCancelled},
	StatusPaid:       {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed out of s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0 && s.Valid()
}

// CanTransition reports whether an order in status s may move to target.
func (s Status) CanTransition(target Status) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Sentinel errors for order validation.
var (
	// ErrNotFound is returned when an order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyItems is returned when an order request carries no line items.
	ErrEmptyItems = errors.New("items required")
	// ErrCustomerInfoRequired is returned when customer name, email, or the
	// shipping address is missing.
	ErrCustomerInfoRequired = errors.New("customer name, email and shipping address are required")
	// ErrNotRemovable is returned when removal is attempted on a paid,
	// shipped, or delivered order.
	ErrNotRemovable = errors.New("order can no longer be removed")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductUnavailableError indicates a referenced product is missing or
// inactive.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available", e.ProductID)
}

// InsufficientStockError indicates a product cannot cover the requested
// quantity. Available carries the stock seen at rejection time.
type InsufficientStockError struct {
	ProductID string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available", e.ProductID, e.Available)
}

// InvalidTransitionError indicates a disallowed status change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Item is a single order line. UnitPrice is a snapshot of the product's
// price at order time, re-priced server-side from the catalog record; the
// client-supplied price is a display hint only.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is a placed product order. Invariant:
// Total = Subtotal - Discount + ShippingCost, with Discount >= 0 and
// Total >= 0, to the cent.
type Order struct {
	ID           string
	Number       string
	TrackingCode string

	// UserID is empty for guest orders.
	UserID        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	ShippingAddress string
	BillingAddress  string
	ShippingMethod  string

	Items []Item

	CouponID   string
	CouponCode string

	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	ShippingCost decimal.Decimal
	Total        decimal.Decimal

	Status             Status
	TrackingNumber     string
	CancellationReason string
	Notes              string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence for orders. Create must commit the order,
// its items, the per-product conditional stock decrement and sales-count
// increment, and the conditional coupon usage increment as one transaction:
// a failed stock or coupon condition rolls back everything and surfaces as
// InsufficientStockError or coupon.ErrUsageLimitReached.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByTrackingCode(ctx context.Context, code string) (*Order, error)
	// Update persists mutable fields (status, tracking number, notes,
	// cancellation reason).
	Update(ctx context.Context, o *Order) error
	// CancelRestoringStock marks the order CANCELLED and restores stock and
	// sales counters for every line item in one transaction.
	CancelRestoringStock(ctx context.Context, o *Order) error
	// DeleteRestoringStock removes the order after restoring stock and
	// sales counters for every line item, in one transaction. It must only
	// be used for orders whose stock decrement is still outstanding.
	DeleteRestoringStock(ctx context.Context, id string) error
	// Delete removes the order without touching stock.
	Delete(ctx context.Context, id string) error
}
