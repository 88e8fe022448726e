package coupons

import (
	"github.com/shopspring/decimal"

	"github.com/librastore/librashop-backend/pkg/db/models"
	"github.com/librastore/librashop-backend/pkg/enums"
	"github.com/librastore/librashop-backend/pkg/money"
)

// ComputeDiscount returns the discount a coupon grants against a subtotal.
// Percentage discounts are rounded to two decimals; fixed discounts are
// capped at the subtotal so the payable amount never goes negative. A
// non-positive subtotal always yields zero.
func ComputeDiscount(coupon *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if coupon == nil || !subtotal.IsPositive() {
		return decimal.Zero
	}
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		return money.Round2(money.Percent(subtotal, coupon.Value))
	case enums.DiscountTypeFixed:
		if coupon.Value.GreaterThan(subtotal) {
			return subtotal
		}
		return money.Round2(coupon.Value)
	default:
		return decimal.Zero
	}
}
