package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/librastore/librashop-backend/pkg/db/models"
	"github.com/librastore/librashop-backend/pkg/enums"
	"github.com/librastore/librashop-backend/pkg/money"
)

// LineItem is one gateway line item priced in integer minor units.
type LineItem struct {
	Name       string
	Image      *string
	UnitAmount int64
	Quantity   int64
}

// BuildLineItems converts cart lines into gateway line items with the coupon
// already folded into the unit prices.
//
// Percentage coupons scale every unit price by the same multiplier. Fixed
// coupons are prorated across lines by their share of the subtotal, so a
// 5-off coupon on a 25 cart takes 4 from a 20 line and 1 from a 5 line. The
// two shapes intentionally differ; the order history records the aggregate
// discount either way.
func BuildLineItems(items []models.CartItem, coupon *models.Coupon, discount decimal.Decimal) []LineItem {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		unit := item.PriceAtAddition
		switch {
		case coupon == nil || !discount.IsPositive() || !subtotal.IsPositive():
			// no adjustment
		case coupon.DiscountType == enums.DiscountTypePercentage:
			multiplier := decimal.NewFromInt(1).Sub(coupon.Value.Div(decimal.NewFromInt(100)))
			unit = money.Round2(item.PriceAtAddition.Mul(multiplier))
		default:
			lineTotal := item.LineTotal()
			lineDiscount := discount.Mul(lineTotal).Div(subtotal)
			discountedLine := lineTotal.Sub(lineDiscount)
			unit = money.Round2(discountedLine.Div(decimal.NewFromInt(int64(item.Quantity))))
		}
		if unit.IsNegative() {
			unit = decimal.Zero
		}

		line := LineItem{
			UnitAmount: money.ToMinorUnits(unit),
			Quantity:   int64(item.Quantity),
		}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.Image = item.Product.Image
		}
		out = append(out, line)
	}
	return out
}
