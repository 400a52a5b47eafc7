package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camelia-studio/camelia/internal/domain/authz"
	"github.com/camelia-studio/camelia/internal/domain/booking"
	"github.com/camelia-studio/camelia/internal/domain/coupon"
	"github.com/camelia-studio/camelia/internal/domain/order"
	"github.com/camelia-studio/camelia/internal/domain/product"
)

// --- Mock implementations ---

type mockServiceRepo struct {
	byID map[string]*booking.Service
}

func (m *mockServiceRepo) GetByID(_ context.Context, id string) (*booking.Service, error) {
	svc, ok := m.byID[id]
	if !ok {
		return nil, booking.ErrServiceNotFound
	}
	return svc, nil
}

type mockBookingRepo struct {
	byID      map[string]*booking.Booking
	active    []booking.Booking
	createErr error
}

func (m *mockBookingRepo) Create(_ context.Context, b *booking.Booking, _ *int) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[b.ID] = b
	return nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id string) (*booking.Booking, error) {
	b, ok := m.byID[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *mockBookingRepo) Update(_ context.Context, b *booking.Booking) error {
	m.byID[b.ID] = b
	return nil
}

func (m *mockBookingRepo) Reschedule(_ context.Context, b *booking.Booking, _ *int) error {
	m.byID[b.ID] = b
	return nil
}

func (m *mockBookingRepo) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

func (m *mockBookingRepo) ListActiveByServiceDate(_ context.Context, _ string, _ time.Time) ([]booking.Booking, error) {
	return m.active, nil
}

func (m *mockBookingRepo) MarkReminderSent(_ context.Context, _ string) error {
	return nil
}

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockProductRepo) GetActiveByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok && p.Active {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	byID map[string]*order.Order
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) GetByTrackingCode(_ context.Context, code string) (*order.Order, error) {
	for _, o := range m.byID {
		if o.TrackingCode == code {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (m *mockOrderRepo) Update(_ context.Context, o *order.Order) error {
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrderRepo) CancelRestoringStock(_ context.Context, o *order.Order) error {
	m.byID[o.ID] = o
	return nil
}

func (m *mockOrderRepo) DeleteRestoringStock(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

type mockValidator struct {
	result *coupon.Result
	err    error
}

func (m *mockValidator) Validate(_ context.Context, _ string, _ decimal.Decimal, _ string) (*coupon.Result, error) {
	return m.result, m.err
}

type noopNotifier struct{}

func (noopNotifier) BookingCreated(context.Context, *booking.Booking) {}
func (noopNotifier) BookingStatusChanged(context.Context, *booking.Booking, booking.Status) {}
func (noopNotifier) OrderPlaced(context.Context, *order.Order, order.SellerNotice) {}
func (noopNotifier) OrderStatusChanged(context.Context, *order.Order, order.Status) {}

// --- Helpers ---

type fixture struct {
	services *mockServiceRepo
	bookings *mockBookingRepo
	products *mockProductRepo
	orders   *mockOrderRepo
	coupons  *mockValidator
	srv      http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		services: &mockServiceRepo{byID: map[string]*booking.Service{
			"svc1": {
				ID:         "svc1",
				ProviderID: "prov1",
				Name:       "Classic Manicure",
				Duration:   time.Hour,
				Available:  true,
			},
		}},
		bookings: &mockBookingRepo{byID: map[string]*booking.Booking{}},
		products: &mockProductRepo{byID: map[string]*product.Product{
			"p1": {
				ID:                "p1",
				SellerID:          "seller-a",
				Name:              "Argan Oil",
				Price:             decimal.RequireFromString("18.50"),
				Stock:             10,
				LowStockThreshold: 2,
				Active:            true,
			},
		}},
		orders:  &mockOrderRepo{byID: map[string]*order.Order{}},
		coupons: &mockValidator{err: coupon.ErrNotFound},
	}

	scheduler := booking.NewScheduler(f.services, f.bookings, noopNotifier{})
	orders := order.NewService(f.products, f.coupons, f.orders, noopNotifier{})
	f.srv = NewHandler(scheduler, orders, f.coupons).Routes()
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, actor *authz.Actor) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if actor != nil {
		req = req.WithContext(WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

var testUser = authz.Actor{ID: "u1", Role: authz.RoleUser}

// --- Tests ---

func TestAvailabilityEndpoint(t *testing.T) {
	f := newFixture()
	d := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	f.bookings.active = []booking.Booking{{
		StartTime: d.Add(10 * time.Hour),
		EndTime:   d.Add(11 * time.Hour),
		Status:    booking.StatusConfirmed,
	}}

	rec := f.do(t, http.MethodGet, "/bookings/availability/svc1?date=2026-03-02", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		ServiceID       string `json:"serviceId"`
		Date            string `json:"date"`
		DurationMinutes int    `json:"durationMinutes"`
		Slots           []struct {
			StartTime string `json:"startTime"`
			Available bool   `json:"available"`
		} `json:"slots"`
		Booked []struct {
			StartTime string `json:"startTime"`
			EndTime   string `json:"endTime"`
		} `json:"booked"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "svc1", resp.ServiceID)
	assert.Equal(t, "2026-03-02", resp.Date)
	assert.Equal(t, 60, resp.DurationMinutes)
	require.Len(t, resp.Booked, 1)

	avail := make(map[string]bool, len(resp.Slots))
	for _, s := range resp.Slots {
		avail[s.StartTime] = s.Available
	}
	assert.False(t, avail["09:30"])
	assert.True(t, avail["11:00"])
}

func TestAvailabilityEndpoint_BadDate(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/bookings/availability/svc1?date=tomorrow", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityEndpoint_UnknownService(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/bookings/availability/nope?date=2026-03-02", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateBookingEndpoint(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/bookings", map[string]any{
		"serviceId": "svc1",
		"date":      "2026-03-02",
		"startTime": "10:00",
		"location":  "studio",
	}, &testUser)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp bookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, "2026-03-02", resp.Date)
	assert.Equal(t, "u1", resp.UserID)
}

func TestCreateBookingEndpoint_GuestWithoutContact(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/bookings", map[string]any{
		"serviceId": "svc1",
		"date":      "2026-03-02",
		"startTime": "10:00",
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookingEndpoint_SlotConflict(t *testing.T) {
	f := newFixture()
	f.bookings.createErr = booking.ErrSlotTaken

	rec := f.do(t, http.MethodPost, "/bookings", map[string]any{
		"serviceId": "svc1",
		"date":      "2026-03-02",
		"startTime": "10:00",
	}, &testUser)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestUpdateBookingEndpoint_CancelAsOwner(t *testing.T) {
	f := newFixture()
	d := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	f.bookings.byID["b1"] = &booking.Booking{
		ID: "b1", ServiceID: "svc1", UserID: "u1",
		Date: d, StartTime: d.Add(10 * time.Hour), EndTime: d.Add(11 * time.Hour),
		Status: booking.StatusPending,
	}

	rec := f.do(t, http.MethodPatch, "/bookings/b1", map[string]any{
		"status": "CANCELLED",
	}, &testUser)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp bookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CANCELLED", resp.Status)
}

func TestUpdateBookingEndpoint_GuestForbidden(t *testing.T) {
	f := newFixture()
	d := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	f.bookings.byID["b1"] = &booking.Booking{
		ID: "b1", ServiceID: "svc1", UserID: "u1",
		Date: d, StartTime: d.Add(10 * time.Hour), EndTime: d.Add(11 * time.Hour),
		Status: booking.StatusPending,
	}

	rec := f.do(t, http.MethodPatch, "/bookings/b1", map[string]any{
		"status": "CANCELLED",
	}, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPlaceOrderEndpoint(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/orders", map[string]any{
		"customerName":    "Jamie",
		"customerEmail":   "jamie@example.com",
		"shippingAddress": "1 Main St",
		"items": []map[string]any{
			{"productId": "p1", "quantity": 2},
		},
	}, &testUser)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PENDING", resp.Status)
	assert.True(t, resp.Subtotal.Equal(decimal.RequireFromString("37.00")))
	assert.True(t, resp.Total.Equal(decimal.RequireFromString("37.00")))
}

func TestPlaceOrderEndpoint_InsufficientStock(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/orders", map[string]any{
		"customerName":    "Jamie",
		"customerEmail":   "jamie@example.com",
		"shippingAddress": "1 Main St",
		"items": []map[string]any{
			{"productId": "p1", "quantity": 999},
		},
	}, &testUser)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrackOrderEndpoint(t *testing.T) {
	f := newFixture()
	f.orders.byID["o1"] = &order.Order{
		ID: "o1", TrackingCode: "ABCD1234ABCD1234", Status: order.StatusShipped,
		CustomerName: "Jamie", CustomerEmail: "jamie@example.com",
	}

	rec := f.do(t, http.MethodGet, "/orders/track/ABCD1234ABCD1234", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "SHIPPED", resp.Status)

	rec = f.do(t, http.MethodGet, "/orders/track/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidateCouponEndpoint(t *testing.T) {
	f := newFixture()
	f.coupons.err = nil
	f.coupons.result = &coupon.Result{
		Coupon: &coupon.Coupon{
			Code:          "WELCOME10",
			DiscountType:  coupon.DiscountPercentage,
			DiscountValue: decimal.RequireFromString("10"),
		},
		Discount: decimal.RequireFromString("1000"),
	}

	rec := f.do(t, http.MethodPost, "/coupons/validate", map[string]any{
		"code":        "WELCOME10",
		"totalAmount": "20000",
	}, &testUser)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp validateCouponResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.Equal(t, "WELCOME10", resp.Coupon.Code)
	assert.True(t, resp.Discount.Equal(decimal.RequireFromString("1000")))
}

func TestValidateCouponEndpoint_Unknown(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/coupons/validate", map[string]any{
		"code": "NOPE", "totalAmount": "100",
	}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
