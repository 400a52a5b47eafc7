package coupon

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CalculateDiscount computes the discount amount for applying c to an order
// with the given subtotal. Percentage discounts are clamped to MaxDiscount
// when one is set; fixed discounts never exceed the subtotal. The result is
// rounded to 2 decimal places and always satisfies 0 <= discount <= total.
func CalculateDiscount(c *Coupon, total decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		amount = total.Mul(c.DiscountValue).Div(hundred)
		if c.MaxDiscount.IsPositive() {
			amount = decimal.Min(amount, c.MaxDiscount)
		}
	case DiscountFixed:
		amount = c.DiscountValue
	default:
		return decimal.Zero
	}

	amount = decimal.Min(amount, total)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount.Round(2)
}
