package coupons

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librastore/librashop-backend/pkg/db/models"
)

// OfferDTO is the public projection of an active coupon.
type OfferDTO struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	DiscountType string          `json:"discount_type"`
	Value        decimal.Decimal `json:"value"`
	ValidTo      time.Time       `json:"valid_to"`
}

func newOfferDTO(coupon *models.Coupon) OfferDTO {
	return OfferDTO{
		ID:           coupon.ID,
		Code:         coupon.Code,
		DiscountType: coupon.DiscountType.String(),
		Value:        coupon.Value,
		ValidTo:      coupon.ValidTo,
	}
}
