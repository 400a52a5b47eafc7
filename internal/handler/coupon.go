package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type validateCouponRequest struct {
	Code  string          `json:"code"`
	Total decimal.Decimal `json:"totalAmount"`
}

type couponResponse struct {
	Code          string          `json:"code"`
	DiscountType  string          `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

type validateCouponResponse struct {
	Valid    bool            `json:"valid"`
	Coupon   couponResponse  `json:"coupon"`
	Discount decimal.Decimal `json:"discount"`
}

// ValidateCoupon serves POST /coupons/validate. It is a dry run: the coupon's
// usage counter is untouched, so clients can preview a discount at checkout
// without consuming a redemption.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if err := decode(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeErrorMessage(w, http.StatusBadRequest, "coupon code is required")
		return
	}

	actor := ActorFrom(r.Context())
	res, err := h.coupons.Validate(r.Context(), req.Code, req.Total, actor.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, validateCouponResponse{
		Valid: true,
		Coupon: couponResponse{
			Code:          res.Coupon.Code,
			DiscountType:  string(res.Coupon.DiscountType),
			DiscountValue: res.Coupon.DiscountValue,
		},
		Discount: res.Discount,
	})
}
