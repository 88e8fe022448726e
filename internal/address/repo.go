package address

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/pkg/db/models"
)

// Repository encapsulates shipping address persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.ShippingAddress, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.ShippingAddress, error)
	Create(ctx context.Context, addr *models.ShippingAddress) error
	Update(ctx context.Context, addr *models.ShippingAddress) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an address repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ShippingAddress, error) {
	var addr models.ShippingAddress
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

// ListByCustomer returns saved addresses not yet bound to an order.
func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.ShippingAddress, error) {
	var addrs []models.ShippingAddress
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND order_id IS NULL", customerID).
		Order("created_at DESC").
		Find(&addrs).Error
	if err != nil {
		return nil, err
	}
	return addrs, nil
}

func (r *repository) Create(ctx context.Context, addr *models.ShippingAddress) error {
	return r.db.WithContext(ctx).Create(addr).Error
}

func (r *repository) Update(ctx context.Context, addr *models.ShippingAddress) error {
	return r.db.WithContext(ctx).Save(addr).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ShippingAddress{}).Error
}
