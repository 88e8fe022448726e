package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the storefront-side record for a buyer. The authentication
// provider owns the user account; ExternalUserID links back to it and may be
// null for customers materialized from orphaned orders.
type Customer struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ExternalUserID *string   `gorm:"column:external_user_id;uniqueIndex"`
	Name           string    `gorm:"column:name;not null"`
	Email          string    `gorm:"column:email;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
