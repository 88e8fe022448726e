package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/pkg/db/models"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

type productLoader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// ServiceParams groups dependencies for the wishlist service.
type ServiceParams struct {
	WishlistRepo *Repository
	Products     productLoader
}

// Service exposes business rules for wishlist management. Wishlists are only
// available to signed-in customers.
type Service interface {
	GetWishlist(ctx context.Context, customerID uuid.UUID) ([]WishlistItemDTO, error)
	AddItem(ctx context.Context, customerID, productID uuid.UUID) error
	RemoveItem(ctx context.Context, customerID, productID uuid.UUID) error
}

type service struct {
	wishlistRepo *Repository
	products     productLoader
}

// NewService builds a wishlist service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.WishlistRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "wishlist repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product loader is required")
	}
	return &service{
		wishlistRepo: params.WishlistRepo,
		products:     params.Products,
	}, nil
}

// GetWishlist returns the customer's saved products.
func (s *service) GetWishlist(ctx context.Context, customerID uuid.UUID) ([]WishlistItemDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	records, err := s.wishlistRepo.ListItems(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishlist items")
	}
	items := make([]WishlistItemDTO, 0, len(records))
	for i := range records {
		items = append(items, newWishlistItemDTO(&records[i]))
	}
	return items, nil
}

// AddItem ensures the product exists and adds it to the wishlist. Re-adding
// is a no-op.
func (s *service) AddItem(ctx context.Context, customerID, productID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if _, err := s.products.FindProductByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return s.wishlistRepo.AddItem(ctx, customerID, productID)
}

// RemoveItem drops the wishlist entry regardless of prior state.
func (s *service) RemoveItem(ctx context.Context, customerID, productID uuid.UUID) error {
	if customerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return s.wishlistRepo.RemoveItem(ctx, customerID, productID)
}
