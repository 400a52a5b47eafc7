package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Result holds a successfully validated coupon and the discount it yields
// for the checked subtotal.
type Result struct {
	Coupon   *Coupon
	Discount decimal.Decimal
}

// Validator validates a coupon code against an order subtotal and the
// acting user, returning the coupon and its computed discount.
//
// Validation never consumes a redemption: the usage counter moves only via
// the conditional increment inside the order transaction, so a coupon
// checked but never applied costs nothing.
type Validator interface {
	Validate(ctx context.Context, code string, total decimal.Decimal, userID string) (*Result, error)
}

// RepoValidator implements Validator on top of a Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate checks the coupon's activity flag, validity window, minimum
// purchase, global usage cap, and per-user cap, in that order.
func (v *RepoValidator) Validate(ctx context.Context, code string, total decimal.Decimal, userID string) (*Result, error) {
	c, err := v.repo.FindByCode(ctx, strings.ToUpper(code))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	if !c.Active {
		return nil, ErrInactive
	}

	now := v.now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return nil, ErrNotStarted
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return nil, ErrExpired
	}

	if c.MinPurchase.IsPositive() && total.LessThan(c.MinPurchase) {
		return nil, &MinPurchaseError{Min: c.MinPurchase}
	}

	if c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	if c.UserLimit > 0 && userID != "" {
		used, err := v.repo.CountUserRedemptions(ctx, c.ID, userID)
		if err != nil {
			return nil, errors.Wrap(err, "count user redemptions")
		}
		if used >= c.UserLimit {
			return nil, ErrUserLimitReached
		}
	}

	return &Result{
		Coupon:   c,
		Discount: CalculateDiscount(c, total),
	}, nil
}
