package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingAddress is a destination saved by a customer. OrderID is set when
// finalize binds the address to a completed order.
type ShippingAddress struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID *uuid.UUID `gorm:"column:customer_id;type:uuid;index"`
	OrderID    *uuid.UUID `gorm:"column:order_id;type:uuid;index"`
	Address    string     `gorm:"column:address;not null"`
	City       string     `gorm:"column:city;not null"`
	State      string     `gorm:"column:state;not null"`
	Zipcode    string     `gorm:"column:zipcode;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
