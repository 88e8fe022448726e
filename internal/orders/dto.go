package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/librastore/librashop-backend/pkg/db/models"
)

// OrderDTO is the customer-facing order projection.
type OrderDTO struct {
	ID            uuid.UUID       `json:"id"`
	Status        string          `json:"status"`
	Complete      bool            `json:"complete"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	Items         []OrderItemDTO  `json:"items"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OrderItemDTO is one purchased line in the order view. Display data comes
// from the finalize-time snapshot when the catalog row is gone.
type OrderItemDTO struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    *uuid.UUID      `json:"product_id,omitempty"`
	ProductName  string          `json:"product_name"`
	ProductImage *string         `json:"product_image,omitempty"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// OrderPageDTO is a cursor-paginated order listing.
type OrderPageDTO struct {
	Items      []OrderDTO `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// TrackingDTO is the lightweight polling payload for order status pages.
type TrackingDTO struct {
	OrderID        uuid.UUID `json:"order_id"`
	Status         string    `json:"status"`
	TrackingStage  string    `json:"tracking_stage"`
	TrackingLabel  string    `json:"tracking_label"`
	Percent        int       `json:"percent"`
	TrackingNumber *string   `json:"tracking_number,omitempty"`
	Carrier        *string   `json:"carrier,omitempty"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

func newOrderDTO(order *models.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(order.Items))
	for _, item := range order.Items {
		dto := OrderItemDTO{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.DisplayName(),
			ProductImage: item.ProductImage,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice(),
			LineTotal:    item.LineTotal(),
		}
		if item.Product != nil {
			dto.ProductImage = item.Product.Image
		}
		items = append(items, dto)
	}

	discount := decimal.Zero
	if order.Coupon != nil {
		discount = order.Coupon.DiscountAmount
	}

	return OrderDTO{
		ID:            order.ID,
		Status:        order.Status.String(),
		Complete:      order.Complete,
		TransactionID: order.TransactionID,
		Items:         items,
		Discount:      discount,
		Total:         order.Total(),
		CreatedAt:     order.CreatedAt,
	}
}

func newTrackingDTO(order *models.Order) TrackingDTO {
	progress := order.TrackingStage.Progress()
	return TrackingDTO{
		OrderID:        order.ID,
		Status:         order.Status.String(),
		TrackingStage:  order.TrackingStage.String(),
		TrackingLabel:  progress.Label,
		Percent:        progress.Percent,
		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,
		ShippedAt:      order.ShippedAt,
		DeliveredAt:    order.DeliveredAt,
	}
}
