package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/camelia-studio/camelia/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price,omitempty"`
}

type placeOrderRequest struct {
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone,omitempty"`

	ShippingAddress string          `json:"shippingAddress,omitempty"`
	BillingAddress  string          `json:"billingAddress,omitempty"`
	ShippingMethod  string          `json:"shippingMethod,omitempty"`
	ShippingCost    decimal.Decimal `json:"shippingCost,omitempty"`

	Notes      string             `json:"notes,omitempty"`
	CouponCode string             `json:"couponCode,omitempty"`
	Items      []orderItemRequest `json:"items"`
}

type orderItemResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type orderResponse struct {
	ID           string `json:"id"`
	Number       string `json:"orderNumber"`
	TrackingCode string `json:"trackingCode"`

	UserID        string `json:"userId,omitempty"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone,omitempty"`

	ShippingAddress string `json:"shippingAddress,omitempty"`
	BillingAddress  string `json:"billingAddress,omitempty"`
	ShippingMethod  string `json:"shippingMethod,omitempty"`

	Items []orderItemResponse `json:"items"`

	CouponCode string `json:"couponCode,omitempty"`

	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	Total        decimal.Decimal `json:"total"`

	Status             string `json:"status"`
	TrackingNumber     string `json:"trackingNumber,omitempty"`
	CancellationReason string `json:"cancellationReason,omitempty"`
	Notes              string `json:"notes,omitempty"`

	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return orderResponse{
		ID:                 o.ID,
		Number:             o.Number,
		TrackingCode:       o.TrackingCode,
		UserID:             o.UserID,
		CustomerName:       o.CustomerName,
		CustomerEmail:      o.CustomerEmail,
		CustomerPhone:      o.CustomerPhone,
		ShippingAddress:    o.ShippingAddress,
		BillingAddress:     o.BillingAddress,
		ShippingMethod:     o.ShippingMethod,
		Items:              items,
		CouponCode:         o.CouponCode,
		Subtotal:           o.Subtotal,
		Discount:           o.Discount,
		ShippingCost:       o.ShippingCost,
		Total:              o.Total,
		Status:             string(o.Status),
		TrackingNumber:     o.TrackingNumber,
		CancellationReason: o.CancellationReason,
		Notes:              o.Notes,
		CreatedAt:          o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          o.UpdatedAt.Format(time.RFC3339),
	}
}

// PlaceOrder serves POST /orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decode(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lines := make([]order.LineRequest, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, order.LineRequest{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}

	o, err := h.orders.Place(r.Context(), order.PlaceRequest{
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		ShippingMethod:  req.ShippingMethod,
		ShippingCost:    req.ShippingCost,
		Notes:           req.Notes,
		CouponCode:      req.CouponCode,
		Items:           lines,
	}, ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

type updateOrderRequest struct {
	Status             *string `json:"status,omitempty"`
	TrackingNumber     *string `json:"trackingNumber,omitempty"`
	CancellationReason *string `json:"cancellationReason,omitempty"`
	Notes              *string `json:"notes,omitempty"`
}

// UpdateOrder serves PATCH /orders/{id}.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := decode(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := order.UpdateRequest{
		TrackingNumber:     req.TrackingNumber,
		CancellationReason: req.CancellationReason,
		Notes:              req.Notes,
	}
	if req.Status != nil {
		status := order.Status(*req.Status)
		if !status.Valid() {
			writeErrorMessage(w, http.StatusBadRequest, "invalid order status")
			return
		}
		upd.Status = &status
	}

	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), upd, ActorFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// DeleteOrder serves DELETE /orders/{id}.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Remove(r.Context(), chi.URLParam(r, "id"), ActorFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TrackOrder serves GET /orders/track/{trackingCode}. Tracking is public:
// the code itself is the capability.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Track(r.Context(), chi.URLParam(r, "trackingCode"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
