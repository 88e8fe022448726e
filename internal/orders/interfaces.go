package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/internal/identity"
	"github.com/librastore/librashop-backend/pkg/db/models"
	"github.com/librastore/librashop-backend/pkg/mail"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type couponResolver interface {
	FindByCodeInsensitive(ctx context.Context, code string) (*models.Coupon, error)
}

type customerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type stateClearer interface {
	Clear(ctx context.Context, owner identity.Owner) error
}

type confirmationMailer interface {
	SendOrderConfirmation(ctx context.Context, msg mail.OrderConfirmation) error
}
