package customers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/pkg/db/models"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

// EnsureInput carries the identity claims used to materialize a customer row.
type EnsureInput struct {
	ExternalUserID string
	Name           string
	Email          string
}

// Service exposes customer lookup and provisioning.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (CustomerDTO, error)
	EnsureByExternalID(ctx context.Context, input EnsureInput) (CustomerDTO, error)
}

type service struct {
	repo Repository
}

// ServiceParams groups dependencies for the customers service.
type ServiceParams struct {
	Repo Repository
}

// NewService builds a customers service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customers repo is required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (CustomerDTO, error) {
	if id == uuid.Nil {
		return CustomerDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CustomerDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "customer not found")
		}
		return CustomerDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return newCustomerDTO(customer), nil
}

// EnsureByExternalID returns the customer linked to the auth-provider user,
// creating the row on first sight and refreshing stale profile fields.
func (s *service) EnsureByExternalID(ctx context.Context, input EnsureInput) (CustomerDTO, error) {
	if input.ExternalUserID == "" {
		return CustomerDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "external user id is required")
	}

	customer, err := s.repo.FindByExternalUserID(ctx, input.ExternalUserID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return CustomerDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}
		created, createErr := s.createFromInput(ctx, input)
		if createErr != nil {
			return CustomerDTO{}, createErr
		}
		return newCustomerDTO(created), nil
	}

	if (input.Name != "" && customer.Name != input.Name) || (input.Email != "" && customer.Email != input.Email) {
		if input.Name != "" {
			customer.Name = input.Name
		}
		if input.Email != "" {
			customer.Email = input.Email
		}
		if err := s.repo.Update(ctx, customer); err != nil {
			return CustomerDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update customer")
		}
	}
	return newCustomerDTO(customer), nil
}

func (s *service) createFromInput(ctx context.Context, input EnsureInput) (*models.Customer, error) {
	record := &models.Customer{
		ExternalUserID: &input.ExternalUserID,
		Name:           input.Name,
		Email:          input.Email,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	return record, nil
}
