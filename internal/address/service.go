package address

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/internal/identity"
	"github.com/librastore/librashop-backend/pkg/db/models"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

// AddressInput carries the fields accepted when saving an address.
type AddressInput struct {
	Address string
	City    string
	State   string
	Zipcode string
}

// AddressDTO is the customer-facing address projection.
type AddressDTO struct {
	ID        uuid.UUID `json:"id"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Zipcode   string    `json:"zipcode"`
	CreatedAt time.Time `json:"created_at"`
}

// Service exposes shipping address management for signed-in customers.
type Service interface {
	List(ctx context.Context, customerID uuid.UUID) ([]AddressDTO, error)
	Create(ctx context.Context, owner identity.Owner, input AddressInput) (AddressDTO, error)
	Update(ctx context.Context, customerID, addressID uuid.UUID, input AddressInput) (AddressDTO, error)
	Delete(ctx context.Context, customerID, addressID uuid.UUID) error
}

// ServiceParams groups dependencies for the address service.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService builds an address service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "address repo is required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID) ([]AddressDTO, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	records, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	addrs := make([]AddressDTO, 0, len(records))
	for i := range records {
		addrs = append(addrs, newAddressDTO(&records[i]))
	}
	return addrs, nil
}

// Create saves an address for the owner. Guest addresses carry no customer
// reference; they reach an order only through the pending checkout state.
func (s *service) Create(ctx context.Context, owner identity.Owner, input AddressInput) (AddressDTO, error) {
	if err := owner.Validate(); err != nil {
		return AddressDTO{}, err
	}
	if err := validateInput(input); err != nil {
		return AddressDTO{}, err
	}
	record := &models.ShippingAddress{
		CustomerID: owner.CustomerID,
		Address:    strings.TrimSpace(input.Address),
		City:       strings.TrimSpace(input.City),
		State:      strings.TrimSpace(input.State),
		Zipcode:    strings.TrimSpace(input.Zipcode),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return AddressDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	return newAddressDTO(record), nil
}

func (s *service) Update(ctx context.Context, customerID, addressID uuid.UUID, input AddressInput) (AddressDTO, error) {
	if err := validateInput(input); err != nil {
		return AddressDTO{}, err
	}
	record, err := s.findOwned(ctx, customerID, addressID)
	if err != nil {
		return AddressDTO{}, err
	}
	if record.OrderID != nil {
		return AddressDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "address already bound to an order")
	}
	record.Address = strings.TrimSpace(input.Address)
	record.City = strings.TrimSpace(input.City)
	record.State = strings.TrimSpace(input.State)
	record.Zipcode = strings.TrimSpace(input.Zipcode)
	if err := s.repo.Update(ctx, record); err != nil {
		return AddressDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update address")
	}
	return newAddressDTO(record), nil
}

func (s *service) Delete(ctx context.Context, customerID, addressID uuid.UUID) error {
	record, err := s.findOwned(ctx, customerID, addressID)
	if err != nil {
		return err
	}
	if record.OrderID != nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "address already bound to an order")
	}
	if err := s.repo.Delete(ctx, record.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	return nil
}

func (s *service) findOwned(ctx context.Context, customerID, addressID uuid.UUID) (*models.ShippingAddress, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}
	record, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if record.CustomerID == nil || *record.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "address belongs to another customer")
	}
	return record, nil
}

func validateInput(input AddressInput) error {
	if strings.TrimSpace(input.Address) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "address is required")
	}
	if strings.TrimSpace(input.City) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "city is required")
	}
	if strings.TrimSpace(input.State) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "state is required")
	}
	if strings.TrimSpace(input.Zipcode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "zipcode is required")
	}
	return nil
}

func newAddressDTO(record *models.ShippingAddress) AddressDTO {
	return AddressDTO{
		ID:        record.ID,
		Address:   record.Address,
		City:      record.City,
		State:     record.State,
		Zipcode:   record.Zipcode,
		CreatedAt: record.CreatedAt,
	}
}
