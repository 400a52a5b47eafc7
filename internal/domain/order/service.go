package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/camelia-studio/camelia/internal/domain/authz"
	"github.com/camelia-studio/camelia/internal/domain/coupon"
	"github.com/camelia-studio/camelia/internal/domain/product"
)

// ErrNegativeShipping is returned when the request carries a negative
// shipping cost.
var ErrNegativeShipping = errors.New("shipping cost cannot be negative")

// SellerNotice describes one seller's share of a placed order. LowStock
// lists the seller's products the order pushed to or below their low-stock
// threshold.
type SellerNotice struct {
	SellerID string
	Items    []Item
	LowStock []string
}

// Notifier receives order lifecycle events. Implementations must be
// best-effort and non-blocking; failures never propagate to the caller.
type Notifier interface {
	OrderPlaced(ctx context.Context, o *Order, notice SellerNotice)
	OrderStatusChanged(ctx context.Context, o *Order, from Status)
}

// LineRequest is one requested order line. Price is the unit price the
// client displayed; it is never trusted for pricing.
type LineRequest struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// PlaceRequest holds the input for placing an order.
type PlaceRequest struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string

	ShippingAddress string
	BillingAddress  string
	ShippingMethod  string
	ShippingCost    decimal.Decimal

	Notes      string
	CouponCode string
	Items      []LineRequest
}

// UpdateRequest holds a partial order mutation. Nil fields are untouched.
type UpdateRequest struct {
	Status             *Status
	TrackingNumber     *string
	CancellationReason *string
	Notes              *string
}

// Service is the inventory and pricing engine: it validates stock, re-prices
// every line from the catalog, applies coupons, and commits the order
// atomically with the stock decrement.
type Service struct {
	products product.Repository
	coupons  coupon.Validator
	orders   Repository
	notifier Notifier
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(products product.Repository, coupons coupon.Validator, orders Repository, notifier Notifier) *Service {
	return &Service{
		products: products,
		coupons:  coupons,
		orders:   orders,
		notifier: notifier,
		now:      time.Now,
	}
}

// Place validates and prices the requested order, then persists it together
// with the stock decrement in a single transaction. The repository's
// conditional updates make overselling impossible: a concurrent order that
// would drive stock negative fails in full with InsufficientStockError.
func (s *Service) Place(ctx context.Context, req PlaceRequest, actor authz.Actor) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.CustomerName == "" || req.CustomerEmail == "" || req.ShippingAddress == "" {
		return nil, ErrCustomerInfoRequired
	}
	if req.ShippingCost.IsNegative() {
		return nil, ErrNegativeShipping
	}

	// Merge duplicate lines so each product appears once.
	ids := make([]string, 0, len(req.Items))
	quantities := make(map[string]int, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
		if _, seen := quantities[line.ProductID]; !seen {
			ids = append(ids, line.ProductID)
		}
		quantities[line.ProductID] += line.Quantity
	}

	// Batch fetch, filtered to active products. A size mismatch means a
	// missing or inactive product.
	fetched, err := s.products.GetActiveByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]*product.Product, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}
	if len(byID) != len(ids) {
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				return nil, &ProductUnavailableError{ProductID: id}
			}
		}
	}

	// Friendly precheck; the authoritative guard is the conditional
	// decrement inside the order transaction.
	items := make([]Item, 0, len(ids))
	subtotal := decimal.Zero
	for _, id := range ids {
		p := byID[id]
		qty := quantities[id]
		if p.Stock < qty {
			return nil, &InsufficientStockError{ProductID: id, Available: p.Stock}
		}
		items = append(items, Item{
			ProductID: id,
			Quantity:  qty,
			UnitPrice: p.Price,
		})
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(qty))))
	}
	subtotal = subtotal.Round(2)

	discount := decimal.Zero
	couponID, couponCode := "", ""
	if req.CouponCode != "" {
		res, err := s.coupons.Validate(ctx, req.CouponCode, subtotal, actor.ID)
		if err != nil {
			return nil, err
		}
		discount = res.Discount
		couponID = res.Coupon.ID
		couponCode = res.Coupon.Code
	}

	now := s.now()
	o := &Order{
		ID:              uuid.New().String(),
		Number:          newOrderNumber(now),
		TrackingCode:    newTrackingCode(),
		UserID:          actor.ID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		ShippingMethod:  req.ShippingMethod,
		Items:           items,
		CouponID:        couponID,
		CouponCode:      couponCode,
		Subtotal:        subtotal,
		Discount:        discount,
		ShippingCost:    req.ShippingCost.Round(2),
		Total:           subtotal.Sub(discount).Add(req.ShippingCost).Round(2),
		Status:          StatusPending,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, err
	}

	s.notifySellers(ctx, o, byID, quantities)
	return o, nil
}

// notifySellers groups the order's lines by seller and dispatches one
// best-effort notice per seller.
func (s *Service) notifySellers(ctx context.Context, o *Order, byID map[string]*product.Product, quantities map[string]int) {
	notices := make(map[string]*SellerNotice)
	var sellers []string
	for _, item := range o.Items {
		p := byID[item.ProductID]
		n, ok := notices[p.SellerID]
		if !ok {
			n = &SellerNotice{SellerID: p.SellerID}
			notices[p.SellerID] = n
			sellers = append(sellers, p.SellerID)
		}
		n.Items = append(n.Items, item)
		if p.LowStockAfter(quantities[item.ProductID]) {
			n.LowStock = append(n.LowStock, p.ID)
		}
	}
	for _, sellerID := range sellers {
		s.notifier.OrderPlaced(ctx, o, *notices[sellerID])
	}
}

// UpdateStatus applies a partial mutation to an order. Only an admin or a
// seller owning at least one line item may mutate; cancellation additionally
// restores stock.
func (s *Service) UpdateStatus(ctx context.Context, id string, req UpdateRequest, actor authz.Actor) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sellerIDs, err := s.sellerIDs(ctx, o)
	if err != nil {
		return nil, err
	}
	if err := authz.Allow(actor, authz.Resource{SellerIDs: sellerIDs}, authz.ActionUpdate); err != nil {
		return nil, err
	}

	from := o.Status
	cancelled := false
	if req.Status != nil && *req.Status != from {
		target := *req.Status
		if !target.Valid() || !from.CanTransition(target) {
			return nil, &InvalidTransitionError{From: from, To: target}
		}
		o.Status = target
		cancelled = target == StatusCancelled
	}
	if req.TrackingNumber != nil {
		o.TrackingNumber = *req.TrackingNumber
	}
	if req.CancellationReason != nil {
		o.CancellationReason = *req.CancellationReason
	}
	if req.Notes != nil {
		o.Notes = *req.Notes
	}
	o.UpdatedAt = s.now()

	if cancelled {
		err = s.orders.CancelRestoringStock(ctx, o)
	} else {
		err = s.orders.Update(ctx, o)
	}
	if err != nil {
		return nil, err
	}

	if o.Status != from {
		s.notifier.OrderStatusChanged(ctx, o, from)
	}
	return o, nil
}

// Remove deletes an order and, unless the order was already cancelled,
// restores the decremented stock. Removal is refused once the order is
// paid, shipped, or delivered.
func (s *Service) Remove(ctx context.Context, id string, actor authz.Actor) error {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := authz.Allow(actor, authz.Resource{OwnerID: o.UserID}, authz.ActionDelete); err != nil {
		return err
	}

	switch o.Status {
	case StatusPaid, StatusShipped, StatusDelivered:
		return ErrNotRemovable
	case StatusCancelled:
		// Cancellation already returned the quantities to stock.
		return s.orders.Delete(ctx, id)
	}

	return s.orders.DeleteRestoringStock(ctx, id)
}

// Track returns an order by its public tracking code.
func (s *Service) Track(ctx context.Context, code string) (*Order, error) {
	return s.orders.GetByTrackingCode(ctx, code)
}

func (s *Service) sellerIDs(ctx context.Context, o *Order) ([]string, error) {
	ids := make([]string, len(o.Items))
	for i, item := range o.Items {
		ids[i] = item.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	sellers := make([]string, 0, len(products))
	for _, p := range products {
		sellers = append(sellers, p.SellerID)
	}
	return sellers, nil
}

// newOrderNumber builds a human-readable order number from the creation date
// and a random suffix. Uniqueness is guaranteed by the database index.
func newOrderNumber(now time.Time) string {
	var suffix [3]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(suffix[:])))
}

// newTrackingCode builds the opaque public tracking handle.
func newTrackingCode() string {
	var code [8]byte
	_, _ = rand.Read(code[:])
	return strings.ToUpper(hex.EncodeToString(code[:]))
}
