package coupon

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the order subtotal,
	// optionally capped by MaxDiscount.
	DiscountPercentage DiscountType = "PERCENTAGE"
	// DiscountFixed applies a fixed monetary amount capped at the subtotal.
	DiscountFixed DiscountType = "FIXED"
)

var (
	// ErrNotFound is returned when no coupon exists for a code.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon has been deactivated.
	ErrInactive = errors.New("coupon is not active")
	// ErrNotStarted is returned before the coupon's validity window opens.
	ErrNotStarted = errors.New("coupon is not yet valid")
	// ErrExpired is returned after the coupon's validity window closes.
	ErrExpired = errors.New("coupon has expired")
	// ErrUsageLimitReached is returned when the global redemption cap is
	// exhausted. The order transaction's conditional increment returns the
	// same error for the loser of a concurrent race.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
	// ErrUserLimitReached is returned when the caller has already redeemed
	// the coupon its per-user maximum number of times.
	ErrUserLimitReached = errors.New("coupon already used the maximum number of times")
)

// MinPurchaseError indicates the order subtotal is below the coupon's
// minimum purchase amount.
type MinPurchaseError struct {
	Min decimal.Decimal
}

func (e *MinPurchaseError) Error() string {
	return fmt.Sprintf("order total is below the coupon minimum of %s", e.Min.StringFixed(2))
}

// Coupon is a discount rule. Codes are unique case-insensitively; an applied
// coupon is immutable from the order's point of view because the order
// stores the computed discount amount, never a live recomputation.
type Coupon struct {
	ID            string
	Code          string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal

	// MinPurchase is the minimum order subtotal; zero means no minimum.
	MinPurchase decimal.Decimal
	// MaxDiscount caps percentage discounts when positive.
	MaxDiscount decimal.Decimal

	ValidFrom  *time.Time
	ValidUntil *time.Time

	// UsageLimit is the global redemption cap; zero means unlimited.
	// UsageCount only ever grows.
	UsageLimit int
	UsageCount int
	// UserLimit is the per-user redemption cap, derived by counting the
	// user's orders referencing this coupon; zero means unlimited.
	UserLimit int

	Active bool
}

// Repository provides coupon lookup. The usage counter is incremented by the
// order repository inside the order transaction, not here.
type Repository interface {
	// FindByCode looks up a coupon by code, case-insensitively.
	// Returns ErrNotFound when no coupon carries the code.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// CountUserRedemptions returns how many orders of the given user
	// reference the coupon.
	CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error)
}
