package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/pkg/db/models"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

// Service exposes coupon resolution and the public offers listing.
type Service interface {
	Resolve(ctx context.Context, code string) (*models.Coupon, error)
	Discount(ctx context.Context, code string, subtotal decimal.Decimal) (*models.Coupon, decimal.Decimal, error)
	ListOffers(ctx context.Context) ([]OfferDTO, error)
}

// ServiceParams groups dependencies for the coupons service.
type ServiceParams struct {
	Repo Repository
	Now  func() time.Time
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a coupons service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupons repo is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{repo: params.Repo, now: now}, nil
}

// Resolve returns the coupon for the code if it is active, inside its
// validity window, and under its redemption cap.
func (s *service) Resolve(ctx context.Context, code string) (*models.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code is required")
	}

	coupon, err := s.repo.FindByCodeInsensitive(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "coupon not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	if !coupon.IsCurrentlyValid(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon is expired or inactive")
	}
	if coupon.MaxUsers > 0 {
		redemptions, err := s.repo.CountRedemptions(ctx, coupon.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count coupon redemptions")
		}
		if redemptions >= int64(coupon.MaxUsers) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon redemption limit reached")
		}
	}
	return coupon, nil
}

// Discount resolves the code and computes its value against the subtotal.
func (s *service) Discount(ctx context.Context, code string, subtotal decimal.Decimal) (*models.Coupon, decimal.Decimal, error) {
	coupon, err := s.Resolve(ctx, code)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return coupon, ComputeDiscount(coupon, subtotal), nil
}

// ListOffers returns the publicly visible active coupons.
func (s *service) ListOffers(ctx context.Context) ([]OfferDTO, error) {
	records, err := s.repo.ListActive(ctx, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active coupons")
	}
	offers := make([]OfferDTO, 0, len(records))
	for i := range records {
		offers = append(offers, newOfferDTO(&records[i]))
	}
	return offers, nil
}
