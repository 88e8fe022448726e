package address

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/internal/identity"
	"github.com/librastore/librashop-backend/pkg/db/models"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

type stubAddressRepo struct {
	addresses map[uuid.UUID]*models.ShippingAddress
}

func newStubAddressRepo() *stubAddressRepo {
	return &stubAddressRepo{addresses: map[uuid.UUID]*models.ShippingAddress{}}
}

func (s *stubAddressRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubAddressRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ShippingAddress, error) {
	addr, ok := s.addresses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return addr, nil
}

func (s *stubAddressRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.ShippingAddress, error) {
	out := []models.ShippingAddress{}
	for _, addr := range s.addresses {
		if addr.CustomerID != nil && *addr.CustomerID == customerID {
			out = append(out, *addr)
		}
	}
	return out, nil
}

func (s *stubAddressRepo) Create(ctx context.Context, addr *models.ShippingAddress) error {
	if addr.ID == uuid.Nil {
		addr.ID = uuid.New()
	}
	s.addresses[addr.ID] = addr
	return nil
}

func (s *stubAddressRepo) Update(ctx context.Context, addr *models.ShippingAddress) error {
	s.addresses[addr.ID] = addr
	return nil
}

func (s *stubAddressRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.addresses, id)
	return nil
}

func newAddressService(t *testing.T, repo *stubAddressRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func validAddress() AddressInput {
	return AddressInput{
		Address: "12 MG Road",
		City:    "Bengaluru",
		State:   "Karnataka",
		Zipcode: "560001",
	}
}

func TestCreateGuestAddressHasNoCustomer(t *testing.T) {
	repo := newStubAddressRepo()
	svc := newAddressService(t, repo)

	dto, err := svc.Create(context.Background(), identity.SessionOwner("sess-1"), validAddress())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if repo.addresses[dto.ID].CustomerID != nil {
		t.Fatalf("guest address must not carry a customer id")
	}
}

func TestCreateCustomerAddress(t *testing.T) {
	repo := newStubAddressRepo()
	svc := newAddressService(t, repo)
	customerID := uuid.New()

	dto, err := svc.Create(context.Background(), identity.CustomerOwner(customerID), validAddress())
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	stored := repo.addresses[dto.ID]
	if stored.CustomerID == nil || *stored.CustomerID != customerID {
		t.Fatalf("customer id not attached: %v", stored.CustomerID)
	}
}

func TestUpdateForeignAddressForbidden(t *testing.T) {
	repo := newStubAddressRepo()
	svc := newAddressService(t, repo)
	ownerID := uuid.New()
	addr := &models.ShippingAddress{ID: uuid.New(), CustomerID: &ownerID, Address: "old", City: "c", State: "s", Zipcode: "z"}
	repo.addresses[addr.ID] = addr

	_, err := svc.Update(context.Background(), uuid.New(), addr.ID, validAddress())
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestUpdateConsumedAddressConflicts(t *testing.T) {
	repo := newStubAddressRepo()
	svc := newAddressService(t, repo)
	customerID := uuid.New()
	orderID := uuid.New()
	addr := &models.ShippingAddress{ID: uuid.New(), CustomerID: &customerID, OrderID: &orderID}
	repo.addresses[addr.ID] = addr

	_, err := svc.Update(context.Background(), customerID, addr.ID, validAddress())
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}

	err = svc.Delete(context.Background(), customerID, addr.ID)
	coded = pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected delete conflict got %v", err)
	}
}

func TestDeleteRemovesOwnAddress(t *testing.T) {
	repo := newStubAddressRepo()
	svc := newAddressService(t, repo)
	customerID := uuid.New()

	dto, err := svc.Create(context.Background(), identity.CustomerOwner(customerID), validAddress())
	if err != nil {
		t.Fatalf("seed create failed: %v", err)
	}
	if err := svc.Delete(context.Background(), customerID, dto.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(repo.addresses) != 0 {
		t.Fatalf("address not removed")
	}
}

func TestListScopedToCustomer(t *testing.T) {
	repo := newStubAddressRepo()
	svc := newAddressService(t, repo)
	customerID := uuid.New()

	if _, err := svc.Create(context.Background(), identity.CustomerOwner(customerID), validAddress()); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}
	if _, err := svc.Create(context.Background(), identity.CustomerOwner(uuid.New()), validAddress()); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}
	if _, err := svc.Create(context.Background(), identity.SessionOwner("sess-2"), validAddress()); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}

	addrs, err := svc.List(context.Background(), customerID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(addrs) != 1 {
		t.Fatalf("expected one address got %d", len(addrs))
	}
}
