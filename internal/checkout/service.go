package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/librastore/librashop-backend/internal/coupons"
	"github.com/librastore/librashop-backend/internal/identity"
	"github.com/librastore/librashop-backend/pkg/config"
	"github.com/librastore/librashop-backend/pkg/db/models"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
	"github.com/librastore/librashop-backend/pkg/metrics"
)

const (
	// MetadataCustomerID carries the resolved customer through the gateway.
	MetadataCustomerID = "customer_id"
	// MetadataSessionKey carries the anonymous owner through the gateway.
	MetadataSessionKey = "session_key"
	// MetadataCartID identifies the cart the session was built from.
	MetadataCartID = "cart_id"
	// MetadataShippingAddressID identifies the selected shipping address.
	MetadataShippingAddressID = "shipping_address_id"
	// MetadataCouponCode carries the applied coupon code.
	MetadataCouponCode = "coupon_code"
)

type cartLoader interface {
	FindByOwner(ctx context.Context, owner identity.Owner) (*models.Cart, error)
}

type addressLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ShippingAddress, error)
}

// SummaryDTO is the pre-payment checkout view: cart totals plus the pending
// coupon and shipping selection.
type SummaryDTO struct {
	CartID            uuid.UUID       `json:"cart_id"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	CouponCode        string          `json:"coupon_code,omitempty"`
	Discount          decimal.Decimal `json:"discount"`
	Total             decimal.Decimal `json:"total"`
	ShippingAddressID *uuid.UUID      `json:"shipping_address_id,omitempty"`
}

// SessionDTO points the storefront at the hosted payment page.
type SessionDTO struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Service exposes the checkout flow: coupon and address selection plus the
// hosted session builder.
type Service interface {
	Summary(ctx context.Context, owner identity.Owner) (SummaryDTO, error)
	ApplyCoupon(ctx context.Context, owner identity.Owner, code string) (SummaryDTO, error)
	RemoveCoupon(ctx context.Context, owner identity.Owner) (SummaryDTO, error)
	SelectAddress(ctx context.Context, owner identity.Owner, addressID uuid.UUID) (SummaryDTO, error)
	BuildSession(ctx context.Context, owner identity.Owner) (SessionDTO, error)
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Carts     cartLoader
	Coupons   coupons.Service
	Addresses addressLoader
	State     *StateStore
	Stripe    StripeSessionClient
	Config    config.CheckoutConfig
	Metrics   *metrics.CheckoutMetrics
	StripeEnv string
}

type service struct {
	carts     cartLoader
	coupons   coupons.Service
	addresses addressLoader
	state     *StateStore
	stripe    StripeSessionClient
	cfg       config.CheckoutConfig
	metrics   *metrics.CheckoutMetrics
	stripeEnv string
}

// NewService builds a checkout service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart loader is required")
	}
	if params.Coupons == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupons service is required")
	}
	if params.Addresses == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "address loader is required")
	}
	if params.State == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "state store is required")
	}
	if params.Stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stripe client is required")
	}
	return &service{
		carts:     params.Carts,
		coupons:   params.Coupons,
		addresses: params.Addresses,
		state:     params.State,
		stripe:    params.Stripe,
		cfg:       params.Config,
		metrics:   params.Metrics,
		stripeEnv: params.StripeEnv,
	}, nil
}

// Summary returns the current checkout view for the owner. A stale coupon in
// state degrades to no discount instead of failing the read.
func (s *service) Summary(ctx context.Context, owner identity.Owner) (SummaryDTO, error) {
	if err := owner.Validate(); err != nil {
		return SummaryDTO{}, err
	}
	cart, err := s.loadCart(ctx, owner)
	if err != nil {
		return SummaryDTO{}, err
	}
	state, err := s.state.Load(ctx, owner)
	if err != nil {
		return SummaryDTO{}, err
	}
	return s.buildSummary(ctx, cart, state), nil
}

// ApplyCoupon stores the code in the pending checkout state after validating
// it against the current cart.
func (s *service) ApplyCoupon(ctx context.Context, owner identity.Owner, code string) (SummaryDTO, error) {
	if err := owner.Validate(); err != nil {
		return SummaryDTO{}, err
	}
	cart, err := s.loadCart(ctx, owner)
	if err != nil {
		return SummaryDTO{}, err
	}
	if len(cart.Items) == 0 {
		return SummaryDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "cannot apply a coupon to an empty cart")
	}

	coupon, _, err := s.coupons.Discount(ctx, code, cart.Total())
	if err != nil {
		if coded := pkgerrors.As(err); coded != nil && coded.Code() != pkgerrors.CodeDependency {
			return SummaryDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid or expired coupon")
		}
		return SummaryDTO{}, err
	}

	state, err := s.state.Load(ctx, owner)
	if err != nil {
		return SummaryDTO{}, err
	}
	state.CouponCode = coupon.Code
	if err := s.state.Save(ctx, owner, state); err != nil {
		return SummaryDTO{}, err
	}
	return s.buildSummary(ctx, cart, state), nil
}

// RemoveCoupon clears any applied code; removing when none is applied is a
// no-op.
func (s *service) RemoveCoupon(ctx context.Context, owner identity.Owner) (SummaryDTO, error) {
	if err := owner.Validate(); err != nil {
		return SummaryDTO{}, err
	}
	cart, err := s.loadCart(ctx, owner)
	if err != nil {
		return SummaryDTO{}, err
	}
	state, err := s.state.Load(ctx, owner)
	if err != nil {
		return SummaryDTO{}, err
	}
	state.CouponCode = ""
	if err := s.state.Save(ctx, owner, state); err != nil {
		return SummaryDTO{}, err
	}
	return s.buildSummary(ctx, cart, state), nil
}

// SelectAddress records the shipping address for the upcoming session.
func (s *service) SelectAddress(ctx context.Context, owner identity.Owner, addressID uuid.UUID) (SummaryDTO, error) {
	if err := owner.Validate(); err != nil {
		return SummaryDTO{}, err
	}
	if addressID == uuid.Nil {
		return SummaryDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "address id is required")
	}

	addr, err := s.addresses.FindByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return SummaryDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "address not found")
		}
		return SummaryDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if addr.CustomerID != nil && (!owner.IsCustomer() || *addr.CustomerID != *owner.CustomerID) {
		return SummaryDTO{}, pkgerrors.New(pkgerrors.CodeForbidden, "address belongs to another customer")
	}
	if addr.OrderID != nil {
		return SummaryDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "address already bound to an order")
	}

	cart, err := s.loadCart(ctx, owner)
	if err != nil {
		return SummaryDTO{}, err
	}
	state, err := s.state.Load(ctx, owner)
	if err != nil {
		return SummaryDTO{}, err
	}
	state.ShippingAddressID = &addr.ID
	if err := s.state.Save(ctx, owner, state); err != nil {
		return SummaryDTO{}, err
	}
	return s.buildSummary(ctx, cart, state), nil
}

// BuildSession creates the hosted payment session for the owner's cart. It
// mutates nothing: the cart, coupon state, and address selection all survive
// both gateway failure and payment cancellation.
func (s *service) BuildSession(ctx context.Context, owner identity.Owner) (SessionDTO, error) {
	if err := owner.Validate(); err != nil {
		return SessionDTO{}, err
	}

	cart, err := s.loadCart(ctx, owner)
	if err != nil {
		return SessionDTO{}, err
	}
	if len(cart.Items) == 0 {
		return SessionDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "cannot check out an empty cart")
	}

	state, err := s.state.Load(ctx, owner)
	if err != nil {
		return SessionDTO{}, err
	}
	if state.ShippingAddressID == nil {
		return SessionDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "shipping address must be selected before checkout")
	}

	var coupon *models.Coupon
	discount := decimal.Zero
	if state.CouponCode != "" {
		coupon, discount, err = s.coupons.Discount(ctx, state.CouponCode, cart.Total())
		if err != nil {
			return SessionDTO{}, pkgerrors.New(pkgerrors.CodeConflict, "applied coupon is no longer valid")
		}
	}

	params := s.sessionParams(owner, cart, state, coupon, discount)
	session, err := s.stripe.CreateSession(ctx, params)
	if err != nil {
		return SessionDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	s.metrics.IncSessionCreated(s.stripeEnv)
	return SessionDTO{SessionID: session.ID, URL: session.URL}, nil
}

func (s *service) sessionParams(owner identity.Owner, cart *models.Cart, state State, coupon *models.Coupon, discount decimal.Decimal) *stripe.CheckoutSessionParams {
	lines := BuildLineItems(cart.Items, coupon, discount)
	lineParams := make([]*stripe.CheckoutSessionLineItemParams, 0, len(lines))
	for _, line := range lines {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(line.Name),
		}
		if line.Image != nil && *line.Image != "" {
			productData.Images = []*string{line.Image}
		}
		lineParams = append(lineParams, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(s.cfg.Currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(line.UnitAmount),
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:                lineParams,
		SuccessURL:               stripe.String(s.cfg.SuccessURL),
		CancelURL:                stripe.String(s.cfg.CancelURL),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
	}
	params.AddMetadata(MetadataCartID, cart.ID.String())
	params.AddMetadata(MetadataShippingAddressID, state.ShippingAddressID.String())
	if owner.IsCustomer() {
		params.AddMetadata(MetadataCustomerID, owner.CustomerID.String())
	} else {
		params.AddMetadata(MetadataSessionKey, owner.SessionKey)
	}
	if state.CouponCode != "" {
		params.AddMetadata(MetadataCouponCode, state.CouponCode)
	}
	return params
}

func (s *service) loadCart(ctx context.Context, owner identity.Owner) (*models.Cart, error) {
	cart, err := s.carts.FindByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.Cart{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) buildSummary(ctx context.Context, cart *models.Cart, state State) SummaryDTO {
	subtotal := cart.Total()
	discount := decimal.Zero
	code := state.CouponCode
	if code != "" {
		if _, amount, err := s.coupons.Discount(ctx, code, subtotal); err == nil {
			discount = amount
		} else {
			code = ""
		}
	}
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return SummaryDTO{
		CartID:            cart.ID,
		Subtotal:          subtotal,
		CouponCode:        code,
		Discount:          discount,
		Total:             total,
		ShippingAddressID: state.ShippingAddressID,
	}
}
