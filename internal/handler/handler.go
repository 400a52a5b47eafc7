// Package handler exposes the scheduling and order core over HTTP with JSON
// bodies. Handlers translate between wire DTOs and domain requests; all
// business rules live in the domain services.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/camelia-studio/camelia/internal/domain/booking"
	"github.com/camelia-studio/camelia/internal/domain/coupon"
	"github.com/camelia-studio/camelia/internal/domain/order"
)

// Handler serves the API routes, delegating to the scheduling and order
// engines.
type Handler struct {
	scheduler *booking.Scheduler
	orders    *order.Service
	coupons   coupon.Validator
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(scheduler *booking.Scheduler, orders *order.Service, coupons coupon.Validator) *Handler {
	return &Handler{
		scheduler: scheduler,
		orders:    orders,
		coupons:   coupons,
	}
}

// Routes returns the API router. The auth middleware is expected to have
// resolved the actor already; handlers that mutate check it themselves.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/bookings", func(r chi.Router) {
		r.Get("/availability/{serviceID}", h.Availability)
		r.Post("/", h.CreateBooking)
		r.Patch("/{id}", h.UpdateBooking)
		r.Delete("/{id}", h.DeleteBooking)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.PlaceOrder)
		r.Patch("/{id}", h.UpdateOrder)
		r.Delete("/{id}", h.DeleteOrder)
		r.Get("/track/{trackingCode}", h.TrackOrder)
	})

	r.Post("/coupons/validate", h.ValidateCoupon)

	return r
}
