package wishlist

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librastore/librashop-backend/pkg/db/models"
)

// WishlistItemDTO wraps the product included in a wishlist row.
type WishlistItemDTO struct {
	ProductID    uuid.UUID       `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductSlug  string          `json:"product_slug"`
	ProductImage *string         `json:"product_image,omitempty"`
	Price        decimal.Decimal `json:"price"`
	Available    bool            `json:"available"`
	CreatedAt    time.Time       `json:"created_at"`
}

func newWishlistItemDTO(item *models.WishlistItem) WishlistItemDTO {
	dto := WishlistItemDTO{
		ProductID: item.ProductID,
		CreatedAt: item.CreatedAt,
	}
	if item.Product != nil {
		dto.ProductName = item.Product.Name
		dto.ProductSlug = item.Product.Slug
		dto.ProductImage = item.Product.Image
		dto.Price = item.Product.Price
		dto.Available = item.Product.Available
	}
	return dto
}
