package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/librastore/librashop-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Order is the immutable purchase record produced by finalize. CustomerID is
// nullable so guest checkouts and gateway-reported orders without a resolvable
// customer still persist; the relink tooling attaches them later.
type Order struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID     *uuid.UUID          `gorm:"column:customer_id;type:uuid;index"`
	Complete       bool                `gorm:"column:complete;not null;default:false"`
	TransactionID  *string             `gorm:"column:transaction_id;uniqueIndex"`
	Status         enums.OrderStatus   `gorm:"column:status;type:text;not null;default:pending"`
	TrackingNumber *string             `gorm:"column:tracking_number"`
	Carrier        *string             `gorm:"column:carrier"`
	TrackingStage  enums.TrackingStage `gorm:"column:tracking_stage;type:text;not null;default:placed"`
	ShippedAt      *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt    *time.Time          `gorm:"column:delivered_at"`
	Items          []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Coupon         *OrderCoupon        `gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// Total sums the item line totals minus any recorded discount, floored at zero.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	if o.Coupon != nil {
		total = total.Sub(o.Coupon.DiscountAmount)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// OrderItem is a line snapshot taken at finalize. ProductName, ProductPrice
// and ProductImage preserve display data even after the catalog row is
// deleted, which nulls ProductID.
type OrderItem struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID        `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    *uuid.UUID       `gorm:"column:product_id;type:uuid"`
	Quantity     int              `gorm:"column:quantity;not null;default:1"`
	ProductName  *string          `gorm:"column:product_name"`
	ProductPrice *decimal.Decimal `gorm:"column:product_price;type:numeric(10,2)"`
	ProductImage *string          `gorm:"column:product_image"`
	Product      *Product         `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// UnitPrice prefers the live catalog price when the product still exists and
// falls back to the snapshot taken at finalize.
func (i OrderItem) UnitPrice() decimal.Decimal {
	if i.Product != nil {
		return i.Product.Price
	}
	if i.ProductPrice != nil {
		return *i.ProductPrice
	}
	return decimal.Zero
}

// DisplayName mirrors UnitPrice for the product name.
func (i OrderItem) DisplayName() string {
	if i.Product != nil {
		return i.Product.Name
	}
	if i.ProductName != nil {
		return *i.ProductName
	}
	return ""
}

// LineTotal returns quantity * unit price.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}
