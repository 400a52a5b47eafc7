package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockCouponRepo struct {
	byCode      map[string]*Coupon
	redemptions map[string]int
	countErr    error
}

func (m *mockCouponRepo) FindByCode(_ context.Context, code string) (*Coupon, error) {
	c, ok := m.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCouponRepo) CountUserRedemptions(_ context.Context, couponID, userID string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.redemptions[couponID+"/"+userID], nil
}

// --- Helpers ---

func timePtr(t time.Time) *time.Time { return &t }

var testNow = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newValidator(coupons ...*Coupon) (*RepoValidator, *mockCouponRepo) {
	byCode := make(map[string]*Coupon, len(coupons))
	for _, c := range coupons {
		byCode[c.Code] = c
	}
	repo := &mockCouponRepo{byCode: byCode, redemptions: make(map[string]int)}
	v := NewRepoValidator(repo)
	v.now = func() time.Time { return testNow }
	return v, repo
}

// --- Tests ---

func TestValidate_WelcomeDiscountCapped(t *testing.T) {
	v, _ := newValidator(&Coupon{
		ID:            "c1",
		Code:          "WELCOME10",
		DiscountType:  DiscountPercentage,
		DiscountValue: dec("10"),
		MaxDiscount:   dec("1000"),
		Active:        true,
	})

	res, err := v.Validate(context.Background(), "welcome10", dec("20000"), "u1")
	require.NoError(t, err)

	assert.Equal(t, "WELCOME10", res.Coupon.Code)
	assert.True(t, res.Discount.Equal(dec("1000")), "got %s", res.Discount)
}

func TestValidate_UnknownCode(t *testing.T) {
	v, _ := newValidator()

	_, err := v.Validate(context.Background(), "NOPE", dec("100"), "u1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestValidate_Inactive(t *testing.T) {
	v, _ := newValidator(&Coupon{
		ID: "c1", Code: "OLD", DiscountType: DiscountFixed, DiscountValue: dec("5"),
	})

	_, err := v.Validate(context.Background(), "OLD", dec("100"), "u1")
	require.ErrorIs(t, err, ErrInactive)
}

func TestValidate_Window(t *testing.T) {
	future := &Coupon{
		ID: "c1", Code: "SOON", DiscountType: DiscountFixed, DiscountValue: dec("5"),
		Active:    true,
		ValidFrom: timePtr(testNow.Add(time.Hour)),
	}
	past := &Coupon{
		ID: "c2", Code: "GONE", DiscountType: DiscountFixed, DiscountValue: dec("5"),
		Active:     true,
		ValidUntil: timePtr(testNow.Add(-time.Hour)),
	}
	v, _ := newValidator(future, past)

	_, err := v.Validate(context.Background(), "SOON", dec("100"), "u1")
	require.ErrorIs(t, err, ErrNotStarted)

	_, err = v.Validate(context.Background(), "GONE", dec("100"), "u1")
	require.ErrorIs(t, err, ErrExpired)
}

func TestValidate_MinPurchase(t *testing.T) {
	v, _ := newValidator(&Coupon{
		ID: "c1", Code: "BIG", DiscountType: DiscountPercentage, DiscountValue: dec("20"),
		MinPurchase: dec("50"),
		Active:      true,
	})

	_, err := v.Validate(context.Background(), "BIG", dec("49.99"), "u1")
	var mpErr *MinPurchaseError
	require.ErrorAs(t, err, &mpErr)
	assert.True(t, mpErr.Min.Equal(dec("50")))

	res, err := v.Validate(context.Background(), "BIG", dec("50"), "u1")
	require.NoError(t, err)
	assert.True(t, res.Discount.Equal(dec("10")))
}

func TestValidate_GlobalUsageCap(t *testing.T) {
	v, _ := newValidator(&Coupon{
		ID: "c1", Code: "CAPPED", DiscountType: DiscountFixed, DiscountValue: dec("5"),
		UsageLimit: 10,
		UsageCount: 10,
		Active:     true,
	})

	_, err := v.Validate(context.Background(), "CAPPED", dec("100"), "u1")
	require.ErrorIs(t, err, ErrUsageLimitReached)
}

func TestValidate_PerUserCap(t *testing.T) {
	v, repo := newValidator(&Coupon{
		ID: "c1", Code: "ONCE", DiscountType: DiscountFixed, DiscountValue: dec("5"),
		UserLimit: 1,
		Active:    true,
	})
	repo.redemptions["c1/u1"] = 1

	_, err := v.Validate(context.Background(), "ONCE", dec("100"), "u1")
	require.ErrorIs(t, err, ErrUserLimitReached)

	// A different user still qualifies.
	res, err := v.Validate(context.Background(), "ONCE", dec("100"), "u2")
	require.NoError(t, err)
	assert.True(t, res.Discount.Equal(dec("5")))
}

func TestValidate_GuestSkipsPerUserCap(t *testing.T) {
	v, _ := newValidator(&Coupon{
		ID: "c1", Code: "ONCE", DiscountType: DiscountFixed, DiscountValue: dec("5"),
		UserLimit: 1,
		Active:    true,
	})

	// Guests carry no user ID; the per-user cap cannot apply.
	_, err := v.Validate(context.Background(), "ONCE", dec("100"), "")
	require.NoError(t, err)
}
