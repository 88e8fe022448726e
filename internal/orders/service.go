package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	cartpkg "github.com/librastore/librashop-backend/internal/cart"
	"github.com/librastore/librashop-backend/internal/checkout"
	"github.com/librastore/librashop-backend/internal/coupons"
	"github.com/librastore/librashop-backend/internal/identity"
	"github.com/librastore/librashop-backend/pkg/db/models"
	"github.com/librastore/librashop-backend/pkg/enums"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
	"github.com/librastore/librashop-backend/pkg/logger"
	"github.com/librastore/librashop-backend/pkg/mail"
	"github.com/librastore/librashop-backend/pkg/metrics"
)

// Confirmation carries a verified payment confirmation into the finalizer.
// The same shape arrives from the gateway webhook and from the
// success-redirect handler; both may deliver the same payment.
type Confirmation struct {
	TransactionID string
	Metadata      map[string]string
	Source        string
}

// TrackingInput carries the staff-editable tracking fields.
type TrackingInput struct {
	Stage          enums.TrackingStage
	TrackingNumber *string
	Carrier        *string
}

// Service exposes order finalization, queries, tracking, and reconciliation.
type Service interface {
	Finalize(ctx context.Context, confirmation Confirmation) (OrderDTO, error)
	GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (OrderDTO, error)
	ListOrders(ctx context.Context, customerID uuid.UUID, cursor string, limit int) (OrderPageDTO, error)
	ListAllOrders(ctx context.Context, cursor string, limit int) (OrderPageDTO, error)
	Tracking(ctx context.Context, customerID, orderID uuid.UUID) (TrackingDTO, error)
	UpdateTracking(ctx context.Context, orderID uuid.UUID, input TrackingInput) (TrackingDTO, error)
	ListOrphans(ctx context.Context, limit int) ([]OrderDTO, error)
	RelinkOrders(ctx context.Context, customerID uuid.UUID, orderIDs []uuid.UUID) (int64, error)
}

// ServiceParams groups dependencies for the orders service.
type ServiceParams struct {
	OrderRepo         Repository
	CartRepo          cartpkg.Repository
	Coupons           couponResolver
	Customers         customerLoader
	TransactionRunner txRunner
	State             stateClearer
	Mailer            confirmationMailer
	Metrics           *metrics.CheckoutMetrics
	Logger            *logger.Logger
	Now               func() time.Time
}

type service struct {
	orderRepo Repository
	cartRepo  cartpkg.Repository
	coupons   couponResolver
	customers customerLoader
	txRunner  txRunner
	state     stateClearer
	mailer    confirmationMailer
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService builds an orders service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.OrderRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repo is required")
	}
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repo is required")
	}
	if params.Coupons == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupon resolver is required")
	}
	if params.Customers == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "customer loader is required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner is required")
	}
	if params.State == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "state clearer is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orderRepo: params.OrderRepo,
		cartRepo:  params.CartRepo,
		coupons:   params.Coupons,
		customers: params.Customers,
		txRunner:  params.TransactionRunner,
		state:     params.State,
		mailer:    params.Mailer,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       now,
	}, nil
}

// Finalize turns a paid cart into an order exactly once. The cart row delete
// is the claim: whichever delivery removes the row creates the order, and
// every later delivery of the same payment finds zero rows affected and
// returns the already-created order without writing anything.
func (s *service) Finalize(ctx context.Context, confirmation Confirmation) (OrderDTO, error) {
	started := s.now()
	dto, outcome, err := s.finalize(ctx, confirmation)
	s.metrics.ObserveFinalizeDuration(confirmation.Source, s.now().Sub(started))
	if err != nil {
		s.metrics.IncFinalize("error", confirmation.Source)
		return OrderDTO{}, err
	}
	s.metrics.IncFinalize(outcome, confirmation.Source)
	return dto, nil
}

func (s *service) finalize(ctx context.Context, confirmation Confirmation) (OrderDTO, string, error) {
	if confirmation.TransactionID == "" {
		return OrderDTO{}, "", pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}

	if existing, err := s.orderRepo.FindByTransactionID(ctx, confirmation.TransactionID); err == nil {
		return newOrderDTO(existing), "duplicate", nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return OrderDTO{}, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up order by transaction")
	}

	cartID, err := uuid.Parse(confirmation.Metadata[checkout.MetadataCartID])
	if err != nil {
		return OrderDTO{}, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "confirmation missing cart id")
	}

	customerID := s.resolveCustomer(ctx, confirmation.Metadata)

	var orderID uuid.UUID
	claimed := false
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		orderRepo := s.orderRepo.WithTx(tx)

		cart, err := cartRepo.FindByID(ctx, cartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		affected, err := cartRepo.DeleteByID(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim cart")
		}
		if affected == 0 {
			return nil
		}
		claimed = true

		transactionID := confirmation.TransactionID
		order := &models.Order{
			CustomerID:    customerID,
			Complete:      true,
			TransactionID: &transactionID,
			Status:        enums.OrderStatusPaid,
			TrackingStage: enums.TrackingStagePlaced,
		}
		if err := orderRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		orderID = order.ID

		if err := orderRepo.CreateItems(ctx, snapshotItems(order.ID, cart.Items)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}

		if code := confirmation.Metadata[checkout.MetadataCouponCode]; code != "" {
			if err := s.recordCoupon(ctx, orderRepo, order.ID, code, cart.Total()); err != nil {
				return err
			}
		}

		if raw := confirmation.Metadata[checkout.MetadataShippingAddressID]; raw != "" {
			addressID, err := uuid.Parse(raw)
			if err == nil {
				if err := orderRepo.LinkShippingAddress(ctx, addressID, order.ID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link shipping address")
				}
			}
		}
		return nil
	})
	if err != nil {
		return OrderDTO{}, "", err
	}

	if !claimed {
		// Cart already consumed by a concurrent delivery of the same payment.
		existing, err := s.orderRepo.FindByTransactionID(ctx, confirmation.TransactionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return OrderDTO{}, "", pkgerrors.New(pkgerrors.CodeConflict, "cart already consumed by another transaction")
			}
			return OrderDTO{}, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up order by transaction")
		}
		return newOrderDTO(existing), "duplicate", nil
	}

	s.afterFinalize(ctx, confirmation, orderID, customerID)

	created, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return OrderDTO{}, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return newOrderDTO(created), "created", nil
}

// resolveCustomer maps confirmation metadata to a customer row. Any failure
// yields a nil customer; the order still persists and relink picks it up.
func (s *service) resolveCustomer(ctx context.Context, metadata map[string]string) *uuid.UUID {
	raw := metadata[checkout.MetadataCustomerID]
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	if _, err := s.customers.FindByID(ctx, id); err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "customer from confirmation metadata not found, order will be orphaned")
		}
		return nil
	}
	return &id
}

func (s *service) recordCoupon(ctx context.Context, orderRepo Repository, orderID uuid.UUID, code string, subtotal decimal.Decimal) error {
	coupon, err := s.coupons.FindByCodeInsensitive(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}
	discount := coupons.ComputeDiscount(coupon, subtotal)
	if !discount.IsPositive() {
		return nil
	}
	record := &models.OrderCoupon{
		OrderID:        orderID,
		CouponID:       &coupon.ID,
		DiscountAmount: discount,
	}
	if err := orderRepo.CreateOrderCoupon(ctx, record); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record coupon redemption")
	}
	return nil
}

// afterFinalize runs the post-commit side effects. None of them can fail the
// finalization; the order is already durable.
func (s *service) afterFinalize(ctx context.Context, confirmation Confirmation, orderID uuid.UUID, customerID *uuid.UUID) {
	owner := ownerFromMetadata(confirmation.Metadata)
	if owner != nil {
		if err := s.state.Clear(ctx, *owner); err != nil && s.logg != nil {
			s.logg.Error(ctx, "clear checkout state after finalize", err)
		}
	}

	if s.mailer == nil || customerID == nil {
		return
	}
	// The mail provider round-trip stays off the finalize path: webhook and
	// redirect responses return as soon as the order is durable. The context
	// is detached so a cancelled request does not abort the send.
	go s.sendConfirmationEmail(context.WithoutCancel(ctx), confirmation.TransactionID, orderID, *customerID)
}

func (s *service) sendConfirmationEmail(ctx context.Context, transactionID string, orderID, customerID uuid.UUID) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return
	}

	msg := mail.OrderConfirmation{
		To:            customer.Email,
		CustomerName:  customer.Name,
		OrderID:       order.ID.String(),
		TransactionID: transactionID,
		Total:         order.Total(),
	}
	for _, item := range order.Items {
		msg.Lines = append(msg.Lines, mail.OrderConfirmationLine{
			Name:      item.DisplayName(),
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}
	if err := s.mailer.SendOrderConfirmation(ctx, msg); err != nil {
		s.metrics.IncEmail("error")
		if s.logg != nil {
			s.logg.Error(ctx, "send order confirmation email", err)
		}
		return
	}
	s.metrics.IncEmail("sent")
}

func ownerFromMetadata(metadata map[string]string) *identity.Owner {
	if raw := metadata[checkout.MetadataCustomerID]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			owner := identity.CustomerOwner(id)
			return &owner
		}
	}
	if key := metadata[checkout.MetadataSessionKey]; key != "" {
		owner := identity.SessionOwner(key)
		return &owner
	}
	return nil
}

func snapshotItems(orderID uuid.UUID, items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		productID := item.ProductID
		snapshot := models.OrderItem{
			OrderID:   orderID,
			ProductID: &productID,
			Quantity:  item.Quantity,
		}
		price := item.PriceAtAddition
		snapshot.ProductPrice = &price
		if item.Product != nil {
			name := item.Product.Name
			snapshot.ProductName = &name
			snapshot.ProductImage = item.Product.Image
		}
		out = append(out, snapshot)
	}
	return out
}

func (s *service) GetOrder(ctx context.Context, customerID, orderID uuid.UUID) (OrderDTO, error) {
	order, err := s.findOwned(ctx, customerID, orderID)
	if err != nil {
		return OrderDTO{}, err
	}
	return newOrderDTO(order), nil
}

func (s *service) ListOrders(ctx context.Context, customerID uuid.UUID, cursor string, limit int) (OrderPageDTO, error) {
	if customerID == uuid.Nil {
		return OrderPageDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return s.list(ctx, ListFilter{CustomerID: &customerID, Cursor: cursor, Limit: limit})
}

func (s *service) ListAllOrders(ctx context.Context, cursor string, limit int) (OrderPageDTO, error) {
	return s.list(ctx, ListFilter{Cursor: cursor, Limit: limit})
}

func (s *service) list(ctx context.Context, filter ListFilter) (OrderPageDTO, error) {
	records, nextCursor, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return OrderPageDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	items := make([]OrderDTO, 0, len(records))
	for i := range records {
		items = append(items, newOrderDTO(&records[i]))
	}
	return OrderPageDTO{Items: items, NextCursor: nextCursor}, nil
}

func (s *service) Tracking(ctx context.Context, customerID, orderID uuid.UUID) (TrackingDTO, error) {
	order, err := s.findOwned(ctx, customerID, orderID)
	if err != nil {
		return TrackingDTO{}, err
	}
	return newTrackingDTO(order), nil
}

// UpdateTracking applies a staff tracking edit. Stages may move in any
// direction; shipped_at and delivered_at are stamped the first time their
// stage is reached.
func (s *service) UpdateTracking(ctx context.Context, orderID uuid.UUID, input TrackingInput) (TrackingDTO, error) {
	if orderID == uuid.Nil {
		return TrackingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !input.Stage.IsValid() {
		return TrackingDTO{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid tracking stage")
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TrackingDTO{}, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return TrackingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	order.TrackingStage = input.Stage
	if input.TrackingNumber != nil {
		order.TrackingNumber = input.TrackingNumber
	}
	if input.Carrier != nil {
		order.Carrier = input.Carrier
	}
	now := s.now()
	if input.Stage == enums.TrackingStageShipped && order.ShippedAt == nil {
		order.ShippedAt = &now
	}
	if input.Stage == enums.TrackingStageDelivered && order.DeliveredAt == nil {
		order.DeliveredAt = &now
	}
	if input.Stage == enums.TrackingStageCancelled {
		order.Status = enums.OrderStatusCancelled
	}

	if err := s.orderRepo.Update(ctx, order); err != nil {
		return TrackingDTO{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order tracking")
	}
	return newTrackingDTO(order), nil
}

func (s *service) ListOrphans(ctx context.Context, limit int) ([]OrderDTO, error) {
	records, err := s.orderRepo.ListOrphans(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orphan orders")
	}
	orphans := make([]OrderDTO, 0, len(records))
	for i := range records {
		orphans = append(orphans, newOrderDTO(&records[i]))
	}
	return orphans, nil
}

// RelinkOrders attaches orphaned orders to the given customer and reports
// how many were claimed.
func (s *service) RelinkOrders(ctx context.Context, customerID uuid.UUID, orderIDs []uuid.UUID) (int64, error) {
	if customerID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if len(orderIDs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one order id is required")
	}
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "customer not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	affected, err := s.orderRepo.AssignCustomer(ctx, orderIDs, customerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign orders")
	}
	return affected, nil
}

func (s *service) findOwned(ctx context.Context, customerID, orderID uuid.UUID) (*models.Order, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerID == nil || *order.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	return order, nil
}
