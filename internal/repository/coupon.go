package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/camelia-studio/camelia/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, discount_type, discount_value, min_purchase,
		max_discount, valid_from, valid_until, usage_limit, usage_count, user_limit, active
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	countUserRedemptionsSQL = `SELECT COUNT(*) FROM orders
		WHERE coupon_id = $1 AND user_id = $2 AND status <> 'CANCELLED'`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL. The
// usage counter is never incremented here; that happens conditionally inside
// the order transaction.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no coupon carries the code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// CountUserRedemptions counts the user's non-cancelled orders referencing
// the coupon.
func (r *CouponRepository) CountUserRedemptions(ctx context.Context, couponID, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, countUserRedemptionsSQL, couponID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting redemptions for coupon %q: %w", couponID, err)
	}
	return count, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c                      coupon.Coupon
		discountType           string
		validFrom, validUntil  *time.Time
		usageLimit, usageCount int32
		userLimit              int32
	)
	err := row.Scan(
		&c.ID, &c.Code, &discountType, &c.DiscountValue, &c.MinPurchase,
		&c.MaxDiscount, &validFrom, &validUntil, &usageLimit, &usageCount,
		&userLimit, &c.Active,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	c.ValidFrom = validFrom
	c.ValidUntil = validUntil
	c.UsageLimit = int(usageLimit)
	c.UsageCount = int(usageCount)
	c.UserLimit = int(userLimit)
	return c, err
}
