package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/pkg/db/models"
	"github.com/librastore/librashop-backend/pkg/enums"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

type stubCouponRepo struct {
	coupon      *models.Coupon
	redemptions int64
}

func (s *stubCouponRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubCouponRepo) FindByCodeInsensitive(ctx context.Context, code string) (*models.Coupon, error) {
	if s.coupon == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.coupon, nil
}

func (s *stubCouponRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Coupon, error) {
	panic("not implemented")
}

func (s *stubCouponRepo) CountRedemptions(ctx context.Context, couponID uuid.UUID) (int64, error) {
	return s.redemptions, nil
}

func (s *stubCouponRepo) ListActive(ctx context.Context, now time.Time) ([]models.Coupon, error) {
	if s.coupon == nil {
		return nil, nil
	}
	return []models.Coupon{*s.coupon}, nil
}

var testNow = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

func validCoupon() *models.Coupon {
	return &models.Coupon{
		ID:           uuid.New(),
		Code:         "FESTIVE20",
		DiscountType: enums.DiscountTypePercentage,
		Value:        decimal.NewFromInt(20),
		ValidFrom:    testNow.Add(-24 * time.Hour),
		ValidTo:      testNow.Add(24 * time.Hour),
		Active:       true,
		MaxUsers:     2,
	}
}

func newCouponService(t *testing.T, repo *stubCouponRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo: repo,
		Now:  func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestResolveValidCoupon(t *testing.T) {
	svc := newCouponService(t, &stubCouponRepo{coupon: validCoupon()})

	coupon, err := svc.Resolve(context.Background(), "festive20")
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if coupon.Code != "FESTIVE20" {
		t.Fatalf("unexpected coupon %s", coupon.Code)
	}
}

func TestResolveExpiredCoupon(t *testing.T) {
	coupon := validCoupon()
	coupon.ValidTo = testNow.Add(-time.Hour)
	svc := newCouponService(t, &stubCouponRepo{coupon: coupon})

	_, err := svc.Resolve(context.Background(), "FESTIVE20")
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestResolveInactiveCoupon(t *testing.T) {
	coupon := validCoupon()
	coupon.Active = false
	svc := newCouponService(t, &stubCouponRepo{coupon: coupon})

	_, err := svc.Resolve(context.Background(), "FESTIVE20")
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestResolveRedemptionCap(t *testing.T) {
	repo := &stubCouponRepo{coupon: validCoupon(), redemptions: 2}
	svc := newCouponService(t, repo)

	_, err := svc.Resolve(context.Background(), "FESTIVE20")
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict got %v", err)
	}

	// One redemption below the cap still resolves.
	repo.redemptions = 1
	if _, err := svc.Resolve(context.Background(), "FESTIVE20"); err != nil {
		t.Fatalf("expected success got %v", err)
	}
}

func TestResolveUnlimitedCoupon(t *testing.T) {
	coupon := validCoupon()
	coupon.MaxUsers = 0
	repo := &stubCouponRepo{coupon: coupon, redemptions: 10000}
	svc := newCouponService(t, repo)

	if _, err := svc.Resolve(context.Background(), "FESTIVE20"); err != nil {
		t.Fatalf("expected success got %v", err)
	}
}

func TestResolveUnknownCode(t *testing.T) {
	svc := newCouponService(t, &stubCouponRepo{})

	_, err := svc.Resolve(context.Background(), "NOPE")
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestDiscountComputesAgainstSubtotal(t *testing.T) {
	svc := newCouponService(t, &stubCouponRepo{coupon: validCoupon()})

	_, amount, err := svc.Discount(context.Background(), "FESTIVE20", decimal.NewFromInt(250))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !amount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected 50 got %s", amount)
	}
}
