package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/camelia-studio/camelia/internal/domain/authz"
	"github.com/camelia-studio/camelia/internal/domain/booking"
	"github.com/camelia-studio/camelia/internal/domain/coupon"
	"github.com/camelia-studio/camelia/internal/domain/order"
	"github.com/camelia-studio/camelia/internal/domain/product"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

// writeError maps domain errors onto the HTTP taxonomy: 404 for missing
// entities, 400 for validation failures, 403 for policy denials, 409 for
// datastore-detected races, 500 for everything else. Infrastructure errors
// are logged with detail and returned without it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch status := statusFor(err); status {
	case http.StatusInternalServerError:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeErrorMessage(w, status, "internal error")
	default:
		writeErrorMessage(w, status, err.Error())
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, booking.ErrNotFound),
		errors.Is(err, booking.ErrServiceNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden

	case errors.Is(err, booking.ErrSlotTaken):
		return http.StatusConflict

	case errors.Is(err, booking.ErrServiceUnavailable),
		errors.Is(err, booking.ErrGuestContactRequired),
		errors.Is(err, booking.ErrDateMismatch),
		errors.Is(err, booking.ErrInvalidStartTime),
		errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrCustomerInfoRequired),
		errors.Is(err, order.ErrNegativeShipping),
		errors.Is(err, order.ErrNotRemovable),
		errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrNotStarted),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, coupon.ErrUserLimitReached):
		return http.StatusBadRequest
	}

	var (
		capErr      *booking.DailyCapError
		advanceErr  *booking.AdvanceWindowError
		bTransErr   *booking.InvalidTransitionError
		qtyErr      *order.InvalidQuantityError
		unavailErr  *order.ProductUnavailableError
		stockErr    *order.InsufficientStockError
		oTransErr   *order.InvalidTransitionError
		minPurchErr *coupon.MinPurchaseError
	)
	switch {
	case errors.As(err, &capErr),
		errors.As(err, &advanceErr),
		errors.As(err, &bTransErr),
		errors.As(err, &qtyErr),
		errors.As(err, &unavailErr),
		errors.As(err, &stockErr),
		errors.As(err, &oTransErr),
		errors.As(err, &minPurchErr):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// decode unmarshals a JSON request body, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
