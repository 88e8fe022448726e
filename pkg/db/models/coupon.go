package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/librastore/librashop-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Coupon is a discount rule activated by code inside its validity window.
// MaxUsers = 0 means unlimited redemptions.
type Coupon struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code         string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType enums.DiscountType `gorm:"column:discount_type;type:text;not null"`
	Value        decimal.Decimal    `gorm:"column:value;type:numeric(5,2);not null"`
	ValidFrom    time.Time          `gorm:"column:valid_from;not null"`
	ValidTo      time.Time          `gorm:"column:valid_to;not null"`
	Active       bool               `gorm:"column:active;not null;default:true"`
	MaxUsers     int                `gorm:"column:max_users;not null;default:0"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// IsCurrentlyValid reports whether the coupon can be applied at the given time.
func (c Coupon) IsCurrentlyValid(now time.Time) bool {
	return c.Active && !now.Before(c.ValidFrom) && !now.After(c.ValidTo)
}

// OrderCoupon records which coupon was applied to an order and the discount
// granted, for audit and reporting. Coupon deletion nulls the reference but
// keeps the historical amount.
type OrderCoupon struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	CouponID       *uuid.UUID      `gorm:"column:coupon_id;type:uuid"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(10,2);not null"`
	Coupon         *Coupon         `gorm:"foreignKey:CouponID;constraint:OnDelete:SET NULL"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
