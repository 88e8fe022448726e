package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librastore/librashop-backend/pkg/db/models"
)

// CartDTO is the owner-facing cart view.
type CartDTO struct {
	ID        uuid.UUID       `json:"id"`
	Items     []CartItemDTO   `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	CreatedAt time.Time       `json:"created_at"`
}

// CartItemDTO is one line of the cart view.
type CartItemDTO struct {
	ID              uuid.UUID       `json:"id"`
	ProductID       uuid.UUID       `json:"product_id"`
	ProductName     string          `json:"product_name"`
	ProductSlug     string          `json:"product_slug"`
	ProductImage    *string         `json:"product_image,omitempty"`
	Quantity        int             `json:"quantity"`
	PriceAtAddition decimal.Decimal `json:"price_at_addition"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

func newCartDTO(cart *models.Cart) CartDTO {
	items := make([]CartItemDTO, 0, len(cart.Items))
	for _, item := range cart.Items {
		dto := CartItemDTO{
			ID:              item.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtAddition: item.PriceAtAddition,
			LineTotal:       item.LineTotal(),
		}
		if item.Product != nil {
			dto.ProductName = item.Product.Name
			dto.ProductSlug = item.Product.Slug
			dto.ProductImage = item.Product.Image
		}
		items = append(items, dto)
	}
	return CartDTO{
		ID:        cart.ID,
		Items:     items,
		Subtotal:  cart.Total(),
		CreatedAt: cart.CreatedAt,
	}
}
