package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/internal/identity"
	"github.com/librastore/librashop-backend/pkg/db"
	"github.com/librastore/librashop-backend/pkg/db/models"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// Service exposes cart business rules.
type Service interface {
	GetCart(ctx context.Context, owner identity.Owner) (CartDTO, error)
	AddItem(ctx context.Context, owner identity.Owner, productID uuid.UUID, quantity int) (CartDTO, error)
	UpdateQuantity(ctx context.Context, owner identity.Owner, productID uuid.UUID, quantity int) (CartDTO, error)
	RemoveItem(ctx context.Context, owner identity.Owner, productID uuid.UUID) (CartDTO, error)
}

// ServiceParams groups dependencies for the cart service.
type ServiceParams struct {
	CartRepo          Repository
	Products          productLoader
	TransactionRunner txRunner
}

type service struct {
	cartRepo Repository
	products productLoader
	txRunner txRunner
}

// NewService builds a cart service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repo is required")
	}
	if params.Products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product loader is required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner is required")
	}
	return &service{
		cartRepo: params.CartRepo,
		products: params.Products,
		txRunner: params.TransactionRunner,
	}, nil
}

// GetCart returns the owner's cart, creating an empty one on first access.
func (s *service) GetCart(ctx context.Context, owner identity.Owner) (CartDTO, error) {
	if err := owner.Validate(); err != nil {
		return CartDTO{}, err
	}
	cart, err := s.getOrCreate(ctx, s.cartRepo, owner)
	if err != nil {
		return CartDTO{}, err
	}
	return newCartDTO(cart), nil
}

// AddItem adds the product to the cart. Re-adding an existing product
// increments its quantity; the unit price stays frozen at the price captured
// when the line was first created.
func (s *service) AddItem(ctx context.Context, owner identity.Owner, productID uuid.UUID, quantity int) (CartDTO, error) {
	if err := owner.Validate(); err != nil {
		return CartDTO{}, err
	}
	if productID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity <= 0 {
		quantity = 1
	}

	product, err := s.products.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Available {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "product is not available")
	}

	var cartID uuid.UUID
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)
		cart, err := s.lockOrCreate(ctx, repo, owner)
		if err != nil {
			return err
		}
		cartID = cart.ID

		item, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
			}
			return repo.CreateItem(ctx, &models.CartItem{
				CartID:          cart.ID,
				ProductID:       productID,
				Quantity:        quantity,
				PriceAtAddition: product.Price,
			})
		}
		return repo.UpdateItemQuantity(ctx, item.ID, item.Quantity+quantity)
	})
	if err != nil {
		return CartDTO{}, err
	}
	return s.loadDTO(ctx, cartID)
}

// UpdateQuantity sets the line quantity. Zero or negative removes the line.
func (s *service) UpdateQuantity(ctx context.Context, owner identity.Owner, productID uuid.UUID, quantity int) (CartDTO, error) {
	if err := owner.Validate(); err != nil {
		return CartDTO{}, err
	}
	if productID == uuid.Nil {
		return CartDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	var cartID uuid.UUID
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)
		cart, err := repo.LockByOwner(ctx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
		}
		cartID = cart.ID

		item, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		if quantity <= 0 {
			return repo.DeleteItem(ctx, item.ID)
		}
		return repo.UpdateItemQuantity(ctx, item.ID, quantity)
	})
	if err != nil {
		return CartDTO{}, err
	}
	return s.loadDTO(ctx, cartID)
}

// RemoveItem drops the product line if present.
func (s *service) RemoveItem(ctx context.Context, owner identity.Owner, productID uuid.UUID) (CartDTO, error) {
	return s.UpdateQuantity(ctx, owner, productID, 0)
}

func (s *service) getOrCreate(ctx context.Context, repo Repository, owner identity.Owner) (*models.Cart, error) {
	cart, err := repo.FindByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	fresh := &models.Cart{CustomerID: owner.CustomerID}
	if !owner.IsCustomer() {
		key := owner.SessionKey
		fresh.SessionKey = &key
	}
	if err := repo.Create(ctx, fresh); err != nil {
		// Two first-touch requests can race to create the same owner's cart;
		// the loser trips the unique owner index and adopts the winner's row.
		if db.IsUniqueViolation(err, "") {
			existing, findErr := repo.FindByOwner(ctx, owner)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load cart after create race")
			}
			return existing, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return fresh, nil
}

func (s *service) lockOrCreate(ctx context.Context, repo Repository, owner identity.Owner) (*models.Cart, error) {
	cart, err := repo.LockByOwner(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
	}
	return s.getOrCreate(ctx, repo, owner)
}

func (s *service) loadDTO(ctx context.Context, cartID uuid.UUID) (CartDTO, error) {
	cart, err := s.cartRepo.FindByID(ctx, cartID)
	if err != nil {
		return CartDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart")
	}
	return newCartDTO(cart), nil
}
