package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/internal/identity"
	"github.com/librastore/librashop-backend/pkg/db/models"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

type memCartRepo struct {
	carts map[uuid.UUID]*models.Cart
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: map[uuid.UUID]*models.Cart{}}
}

func (m *memCartRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memCartRepo) FindByOwner(ctx context.Context, owner identity.Owner) (*models.Cart, error) {
	for _, cart := range m.carts {
		if owner.IsCustomer() {
			if cart.CustomerID != nil && *cart.CustomerID == *owner.CustomerID {
				return cart, nil
			}
			continue
		}
		if cart.SessionKey != nil && *cart.SessionKey == owner.SessionKey {
			return cart, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCartRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	cart, ok := m.carts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cart, nil
}

func (m *memCartRepo) LockByOwner(ctx context.Context, owner identity.Owner) (*models.Cart, error) {
	return m.FindByOwner(ctx, owner)
}

func (m *memCartRepo) Create(ctx context.Context, cart *models.Cart) error {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	m.carts[cart.ID] = cart
	return nil
}

func (m *memCartRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			return &cart.Items[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCartRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	cart, ok := m.carts[item.CartID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cart.Items = append(cart.Items, *item)
	return nil
}

func (m *memCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	for _, cart := range m.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items[i].Quantity = quantity
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	for _, cart := range m.carts {
		for i := range cart.Items {
			if cart.Items[i].ID == itemID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *memCartRepo) DeleteByID(ctx context.Context, cartID uuid.UUID) (int64, error) {
	if _, ok := m.carts[cartID]; !ok {
		return 0, nil
	}
	delete(m.carts, cartID)
	return 1, nil
}

// racingCartRepo simulates losing a first-touch create race: another request
// persists the owner's cart between the miss and the insert, so the insert
// trips the unique owner index.
type racingCartRepo struct {
	*memCartRepo
	raced bool
}

func (r *racingCartRepo) WithTx(tx *gorm.DB) Repository { return r }

func (r *racingCartRepo) Create(ctx context.Context, cart *models.Cart) error {
	if !r.raced {
		r.raced = true
		winner := &models.Cart{CustomerID: cart.CustomerID, SessionKey: cart.SessionKey}
		if err := r.memCartRepo.Create(ctx, winner); err != nil {
			return err
		}
		return errors.New(`duplicate key value violates unique constraint "idx_carts_session_key"`)
	}
	return r.memCartRepo.Create(ctx, cart)
}

type stubProducts struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProducts) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return product, nil
}

type passthroughTxRunner struct{}

func (passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newCartService(t *testing.T, repo *memCartRepo, products *stubProducts) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		CartRepo:          repo,
		Products:          products,
		TransactionRunner: passthroughTxRunner{},
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestGetCartCreatesOnFirstAccess(t *testing.T) {
	repo := newMemCartRepo()
	svc := newCartService(t, repo, &stubProducts{})
	owner := identity.SessionOwner("sess-1")

	dto, err := svc.GetCart(context.Background(), owner)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(dto.Items) != 0 {
		t.Fatalf("expected empty cart got %d items", len(dto.Items))
	}
	if len(repo.carts) != 1 {
		t.Fatalf("expected cart persisted got %d", len(repo.carts))
	}

	again, err := svc.GetCart(context.Background(), owner)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if again.ID != dto.ID {
		t.Fatalf("second access created a new cart: %s != %s", again.ID, dto.ID)
	}
}

func TestGetCartAdoptsWinnerAfterCreateRace(t *testing.T) {
	repo := &racingCartRepo{memCartRepo: newMemCartRepo()}
	svc, err := NewService(ServiceParams{
		CartRepo:          repo,
		Products:          &stubProducts{},
		TransactionRunner: passthroughTxRunner{},
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	owner := identity.SessionOwner("sess-race")

	dto, err := svc.GetCart(context.Background(), owner)
	if err != nil {
		t.Fatalf("expected winner's cart got %v", err)
	}
	if len(repo.carts) != 1 {
		t.Fatalf("expected a single cart got %d", len(repo.carts))
	}
	for id := range repo.carts {
		if dto.ID != id {
			t.Fatalf("expected winner cart %s got %s", id, dto.ID)
		}
	}
	if !repo.raced {
		t.Fatal("create race was never exercised")
	}
}

func TestAddItemFreezesPriceAndIncrements(t *testing.T) {
	productID := uuid.New()
	product := &models.Product{
		ID:        productID,
		Name:      "Ceramic Mug",
		Price:     decimal.NewFromFloat(120.50),
		Available: true,
	}
	repo := newMemCartRepo()
	svc := newCartService(t, repo, &stubProducts{products: map[uuid.UUID]*models.Product{productID: product}})
	owner := identity.SessionOwner("sess-2")

	dto, err := svc.AddItem(context.Background(), owner, productID, 1)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(dto.Items) != 1 || dto.Items[0].Quantity != 1 {
		t.Fatalf("unexpected cart %+v", dto.Items)
	}
	if !dto.Items[0].PriceAtAddition.Equal(decimal.NewFromFloat(120.50)) {
		t.Fatalf("unexpected captured price %s", dto.Items[0].PriceAtAddition)
	}

	// Catalog price changes; the line keeps the captured price.
	product.Price = decimal.NewFromFloat(199.99)

	dto, err = svc.AddItem(context.Background(), owner, productID, 2)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(dto.Items) != 1 {
		t.Fatalf("expected single line got %d", len(dto.Items))
	}
	if dto.Items[0].Quantity != 3 {
		t.Fatalf("expected quantity 3 got %d", dto.Items[0].Quantity)
	}
	if !dto.Items[0].PriceAtAddition.Equal(decimal.NewFromFloat(120.50)) {
		t.Fatalf("price moved after re-add: %s", dto.Items[0].PriceAtAddition)
	}
}

func TestAddItemRejectsUnavailableProduct(t *testing.T) {
	productID := uuid.New()
	products := &stubProducts{products: map[uuid.UUID]*models.Product{
		productID: {ID: productID, Name: "Retired Lamp", Available: false},
	}}
	svc := newCartService(t, newMemCartRepo(), products)

	_, err := svc.AddItem(context.Background(), identity.SessionOwner("sess-3"), productID, 1)
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestUpdateQuantityZeroRemovesLine(t *testing.T) {
	productID := uuid.New()
	products := &stubProducts{products: map[uuid.UUID]*models.Product{
		productID: {ID: productID, Name: "Notebook", Price: decimal.NewFromInt(80), Available: true},
	}}
	repo := newMemCartRepo()
	svc := newCartService(t, repo, products)
	owner := identity.CustomerOwner(uuid.New())

	if _, err := svc.AddItem(context.Background(), owner, productID, 2); err != nil {
		t.Fatalf("seed add failed: %v", err)
	}

	dto, err := svc.UpdateQuantity(context.Background(), owner, productID, 0)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(dto.Items) != 0 {
		t.Fatalf("expected empty cart got %d items", len(dto.Items))
	}
}

func TestUpdateQuantityUnknownItem(t *testing.T) {
	repo := newMemCartRepo()
	svc := newCartService(t, repo, &stubProducts{})
	owner := identity.SessionOwner("sess-4")

	if _, err := svc.GetCart(context.Background(), owner); err != nil {
		t.Fatalf("seed cart failed: %v", err)
	}

	_, err := svc.UpdateQuantity(context.Background(), owner, uuid.New(), 2)
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestOwnerValidation(t *testing.T) {
	svc := newCartService(t, newMemCartRepo(), &stubProducts{})

	_, err := svc.GetCart(context.Background(), identity.Owner{})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}
