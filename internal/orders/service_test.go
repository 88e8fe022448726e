package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	cartpkg "github.com/librastore/librashop-backend/internal/cart"
	"github.com/librastore/librashop-backend/internal/checkout"
	"github.com/librastore/librashop-backend/internal/identity"
	"github.com/librastore/librashop-backend/pkg/db/models"
	"github.com/librastore/librashop-backend/pkg/enums"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
	"github.com/librastore/librashop-backend/pkg/mail"
	"github.com/librastore/librashop-backend/pkg/metrics"
)

type stubOrderRepo struct {
	orders       map[uuid.UUID]*models.Order
	byTxn        map[string]*models.Order
	items        []models.OrderItem
	orderCoupons []models.OrderCoupon
	linkedAddr   *uuid.UUID
	assigned     int64
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		orders: map[uuid.UUID]*models.Order{},
		byTxn:  map[string]*models.Order{},
	}
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
	if order.TransactionID != nil {
		s.byTxn[*order.TransactionID] = order
	}
	return nil
}

func (s *stubOrderRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	s.items = append(s.items, items...)
	return nil
}

func (s *stubOrderRepo) CreateOrderCoupon(ctx context.Context, record *models.OrderCoupon) error {
	s.orderCoupons = append(s.orderCoupons, *record)
	return nil
}

func (s *stubOrderRepo) Update(ctx context.Context, order *models.Order) error {
	s.orders[order.ID] = order
	return nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrderRepo) FindByTransactionID(ctx context.Context, transactionID string) (*models.Order, error) {
	order, ok := s.byTxn[transactionID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrderRepo) List(ctx context.Context, filter ListFilter) ([]models.Order, string, error) {
	panic("not implemented")
}

func (s *stubOrderRepo) ListOrphans(ctx context.Context, limit int) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.CustomerID == nil && order.Complete {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubOrderRepo) AssignCustomer(ctx context.Context, orderIDs []uuid.UUID, customerID uuid.UUID) (int64, error) {
	var affected int64
	for _, id := range orderIDs {
		order, ok := s.orders[id]
		if !ok || order.CustomerID != nil {
			continue
		}
		order.CustomerID = &customerID
		affected++
	}
	s.assigned = affected
	return affected, nil
}

func (s *stubOrderRepo) LinkShippingAddress(ctx context.Context, addressID, orderID uuid.UUID) error {
	s.linkedAddr = &addressID
	return nil
}

type stubCartRepo struct {
	cart    *models.Cart
	deleted bool
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cartpkg.Repository { return s }

func (s *stubCartRepo) FindByOwner(ctx context.Context, owner identity.Owner) (*models.Cart, error) {
	panic("not implemented")
}

func (s *stubCartRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	if s.cart == nil || s.cart.ID != id || s.deleted {
		return nil, gorm.ErrRecordNotFound
	}
	return s.cart, nil
}

func (s *stubCartRepo) LockByOwner(ctx context.Context, owner identity.Owner) (*models.Cart, error) {
	panic("not implemented")
}

func (s *stubCartRepo) Create(ctx context.Context, cart *models.Cart) error {
	panic("not implemented")
}

func (s *stubCartRepo) FindItem(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	panic("not implemented")
}

func (s *stubCartRepo) CreateItem(ctx context.Context, item *models.CartItem) error {
	panic("not implemented")
}

func (s *stubCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	panic("not implemented")
}

func (s *stubCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	panic("not implemented")
}

func (s *stubCartRepo) DeleteByID(ctx context.Context, cartID uuid.UUID) (int64, error) {
	if s.deleted || s.cart == nil || s.cart.ID != cartID {
		return 0, nil
	}
	s.deleted = true
	return 1, nil
}

type stubCouponResolver struct {
	coupon *models.Coupon
}

func (s *stubCouponResolver) FindByCodeInsensitive(ctx context.Context, code string) (*models.Coupon, error) {
	if s.coupon == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.coupon, nil
}

type stubCustomerLoader struct {
	customers map[uuid.UUID]*models.Customer
}

func (s *stubCustomerLoader) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, ok := s.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return customer, nil
}

type stubStateClearer struct {
	cleared []identity.Owner
}

func (s *stubStateClearer) Clear(ctx context.Context, owner identity.Owner) error {
	s.cleared = append(s.cleared, owner)
	return nil
}

// stubMailer records sends; the confirmation goes out on a background
// goroutine, so it is safe for concurrent use. Tests that care about delivery
// build it with newStubMailer and wait on the delivered channel. Setting
// release makes sends park until the channel is closed.
type stubMailer struct {
	mu        sync.Mutex
	sent      []mail.OrderConfirmation
	delivered chan struct{}
	release   chan struct{}
}

func newStubMailer() *stubMailer {
	return &stubMailer{delivered: make(chan struct{}, 4)}
}

func (s *stubMailer) SendOrderConfirmation(ctx context.Context, msg mail.OrderConfirmation) error {
	if s.release != nil {
		<-s.release
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	select {
	case s.delivered <- struct{}{}:
	default:
	}
	return nil
}

func (s *stubMailer) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func (s *stubMailer) waitDelivered(t *testing.T) {
	t.Helper()
	select {
	case <-s.delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation email was never delivered")
	}
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testCart(customerID uuid.UUID) *models.Cart {
	productID := uuid.New()
	name := "Walnut Desk Organizer"
	return &models.Cart{
		ID:         uuid.New(),
		CustomerID: &customerID,
		Items: []models.CartItem{
			{
				ID:              uuid.New(),
				ProductID:       productID,
				Quantity:        2,
				PriceAtAddition: decimal.NewFromFloat(450.00),
				Product:         &models.Product{ID: productID, Name: name},
			},
		},
	}
}

func newTestService(t *testing.T, orderRepo *stubOrderRepo, cartRepo *stubCartRepo, customers *stubCustomerLoader, resolver *stubCouponResolver, state *stubStateClearer, mailer *stubMailer) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		OrderRepo:         orderRepo,
		CartRepo:          cartRepo,
		Coupons:           resolver,
		Customers:         customers,
		TransactionRunner: stubTxRunner{},
		State:             state,
		Mailer:            mailer,
		Metrics:           metrics.NewCheckoutMetrics(nil),
		Now:               func() time.Time { return time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestFinalizeCreatesOrderOnce(t *testing.T) {
	customerID := uuid.New()
	cart := testCart(customerID)
	orderRepo := newStubOrderRepo()
	cartRepo := &stubCartRepo{cart: cart}
	customers := &stubCustomerLoader{customers: map[uuid.UUID]*models.Customer{
		customerID: {ID: customerID, Name: "Asha", Email: "asha@example.com"},
	}}
	state := &stubStateClearer{}
	mailer := newStubMailer()
	svc := newTestService(t, orderRepo, cartRepo, customers, &stubCouponResolver{}, state, mailer)

	confirmation := Confirmation{
		TransactionID: "pi_123",
		Metadata: map[string]string{
			checkout.MetadataCartID:     cart.ID.String(),
			checkout.MetadataCustomerID: customerID.String(),
		},
		Source: "webhook",
	}

	dto, err := svc.Finalize(context.Background(), confirmation)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if dto.TransactionID == nil || *dto.TransactionID != "pi_123" {
		t.Fatalf("unexpected transaction id %v", dto.TransactionID)
	}
	if len(orderRepo.items) != 1 {
		t.Fatalf("expected 1 order item got %d", len(orderRepo.items))
	}
	if orderRepo.items[0].ProductPrice == nil || !orderRepo.items[0].ProductPrice.Equal(decimal.NewFromFloat(450.00)) {
		t.Fatalf("expected snapshot price 450.00 got %v", orderRepo.items[0].ProductPrice)
	}
	if !cartRepo.deleted {
		t.Fatal("expected cart to be consumed")
	}
	if len(state.cleared) != 1 {
		t.Fatalf("expected checkout state cleared once got %d", len(state.cleared))
	}
	mailer.waitDelivered(t)
	if mailer.sentCount() != 1 {
		t.Fatalf("expected 1 confirmation email got %d", mailer.sentCount())
	}

	// Second delivery of the same payment must not create a second order.
	again, err := svc.Finalize(context.Background(), confirmation)
	if err != nil {
		t.Fatalf("duplicate delivery failed: %v", err)
	}
	if again.ID != dto.ID {
		t.Fatalf("duplicate delivery created a new order: %s != %s", again.ID, dto.ID)
	}
	if len(orderRepo.orders) != 1 {
		t.Fatalf("expected 1 order got %d", len(orderRepo.orders))
	}
	if mailer.sentCount() != 1 {
		t.Fatalf("duplicate delivery must not re-send email, got %d", mailer.sentCount())
	}
}

func TestFinalizeReturnsBeforeEmailDelivery(t *testing.T) {
	customerID := uuid.New()
	cart := testCart(customerID)
	orderRepo := newStubOrderRepo()
	cartRepo := &stubCartRepo{cart: cart}
	customers := &stubCustomerLoader{customers: map[uuid.UUID]*models.Customer{
		customerID: {ID: customerID, Name: "Asha", Email: "asha@example.com"},
	}}
	mailer := newStubMailer()
	mailer.release = make(chan struct{})
	svc := newTestService(t, orderRepo, cartRepo, customers, &stubCouponResolver{}, &stubStateClearer{}, mailer)

	confirmation := Confirmation{
		TransactionID: "pi_slow_mail",
		Metadata: map[string]string{
			checkout.MetadataCartID:     cart.ID.String(),
			checkout.MetadataCustomerID: customerID.String(),
		},
		Source: "webhook",
	}

	// The mailer is parked until release closes, so Finalize can only return
	// in time if the send happens off the finalize path.
	finished := make(chan error, 1)
	go func() {
		_, err := svc.Finalize(context.Background(), confirmation)
		finished <- err
	}()
	select {
	case err := <-finished:
		if err != nil {
			t.Fatalf("expected success got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("finalize waited on the confirmation email")
	}
	if mailer.sentCount() != 0 {
		t.Fatalf("email recorded before release, got %d", mailer.sentCount())
	}

	close(mailer.release)
	mailer.waitDelivered(t)
	if mailer.sentCount() != 1 {
		t.Fatalf("expected 1 confirmation email got %d", mailer.sentCount())
	}
}

func TestFinalizeOrphansUnknownCustomer(t *testing.T) {
	cart := testCart(uuid.New())
	orderRepo := newStubOrderRepo()
	cartRepo := &stubCartRepo{cart: cart}
	customers := &stubCustomerLoader{customers: map[uuid.UUID]*models.Customer{}}
	svc := newTestService(t, orderRepo, cartRepo, customers, &stubCouponResolver{}, &stubStateClearer{}, &stubMailer{})

	dto, err := svc.Finalize(context.Background(), Confirmation{
		TransactionID: "pi_orphan",
		Metadata: map[string]string{
			checkout.MetadataCartID:     cart.ID.String(),
			checkout.MetadataCustomerID: uuid.NewString(),
		},
		Source: "webhook",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	stored, ok := orderRepo.orders[dto.ID]
	if !ok {
		t.Fatal("order not persisted")
	}
	if stored.CustomerID != nil {
		t.Fatalf("expected orphan order, got customer %s", stored.CustomerID)
	}
}

func TestFinalizeRecordsCouponRedemption(t *testing.T) {
	customerID := uuid.New()
	cart := testCart(customerID)
	orderRepo := newStubOrderRepo()
	cartRepo := &stubCartRepo{cart: cart}
	customers := &stubCustomerLoader{customers: map[uuid.UUID]*models.Customer{
		customerID: {ID: customerID, Email: "asha@example.com"},
	}}
	resolver := &stubCouponResolver{coupon: &models.Coupon{
		ID:           uuid.New(),
		Code:         "SAVE10",
		DiscountType: enums.DiscountTypePercentage,
		Value:        decimal.NewFromInt(10),
	}}
	svc := newTestService(t, orderRepo, cartRepo, customers, resolver, &stubStateClearer{}, &stubMailer{})

	_, err := svc.Finalize(context.Background(), Confirmation{
		TransactionID: "pi_coupon",
		Metadata: map[string]string{
			checkout.MetadataCartID:     cart.ID.String(),
			checkout.MetadataCustomerID: customerID.String(),
			checkout.MetadataCouponCode: "SAVE10",
		},
		Source: "webhook",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(orderRepo.orderCoupons) != 1 {
		t.Fatalf("expected 1 coupon redemption got %d", len(orderRepo.orderCoupons))
	}
	// 10% of 900.00
	if !orderRepo.orderCoupons[0].DiscountAmount.Equal(decimal.NewFromFloat(90.00)) {
		t.Fatalf("unexpected discount %s", orderRepo.orderCoupons[0].DiscountAmount)
	}
}

func TestFinalizeMissingCartID(t *testing.T) {
	orderRepo := newStubOrderRepo()
	svc := newTestService(t, orderRepo, &stubCartRepo{}, &stubCustomerLoader{}, &stubCouponResolver{}, &stubStateClearer{}, &stubMailer{})

	_, err := svc.Finalize(context.Background(), Confirmation{
		TransactionID: "pi_bad",
		Metadata:      map[string]string{},
		Source:        "webhook",
	})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
}

func TestUpdateTrackingStampsTimestampsOnce(t *testing.T) {
	orderRepo := newStubOrderRepo()
	orderID := uuid.New()
	orderRepo.orders[orderID] = &models.Order{
		ID:            orderID,
		Status:        enums.OrderStatusPaid,
		TrackingStage: enums.TrackingStagePlaced,
	}
	svc := newTestService(t, orderRepo, &stubCartRepo{}, &stubCustomerLoader{}, &stubCouponResolver{}, &stubStateClearer{}, &stubMailer{})

	dto, err := svc.UpdateTracking(context.Background(), orderID, TrackingInput{Stage: enums.TrackingStageShipped})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if dto.ShippedAt == nil {
		t.Fatal("expected shipped_at to be stamped")
	}
	firstShipped := *dto.ShippedAt

	// Moving back and shipping again must not move the stamp.
	if _, err := svc.UpdateTracking(context.Background(), orderID, TrackingInput{Stage: enums.TrackingStagePacked}); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	dto, err = svc.UpdateTracking(context.Background(), orderID, TrackingInput{Stage: enums.TrackingStageShipped})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if dto.ShippedAt == nil || !dto.ShippedAt.Equal(firstShipped) {
		t.Fatalf("shipped_at moved: %v != %v", dto.ShippedAt, firstShipped)
	}
}

func TestUpdateTrackingCancelledSetsStatus(t *testing.T) {
	orderRepo := newStubOrderRepo()
	orderID := uuid.New()
	orderRepo.orders[orderID] = &models.Order{
		ID:            orderID,
		Status:        enums.OrderStatusPaid,
		TrackingStage: enums.TrackingStageConfirmed,
	}
	svc := newTestService(t, orderRepo, &stubCartRepo{}, &stubCustomerLoader{}, &stubCouponResolver{}, &stubStateClearer{}, &stubMailer{})

	dto, err := svc.UpdateTracking(context.Background(), orderID, TrackingInput{Stage: enums.TrackingStageCancelled})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if dto.Status != enums.OrderStatusCancelled.String() {
		t.Fatalf("expected cancelled status got %s", dto.Status)
	}
	if dto.Percent != 0 {
		t.Fatalf("expected 0 percent got %d", dto.Percent)
	}
}

func TestRelinkOrdersRequiresExistingCustomer(t *testing.T) {
	orderRepo := newStubOrderRepo()
	svc := newTestService(t, orderRepo, &stubCartRepo{}, &stubCustomerLoader{customers: map[uuid.UUID]*models.Customer{}}, &stubCouponResolver{}, &stubStateClearer{}, &stubMailer{})

	_, err := svc.RelinkOrders(context.Background(), uuid.New(), []uuid.UUID{uuid.New()})
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found got %v", err)
	}
}

func TestRelinkOrdersSkipsClaimedOrders(t *testing.T) {
	customerID := uuid.New()
	other := uuid.New()
	orderRepo := newStubOrderRepo()
	orphanID := uuid.New()
	claimedID := uuid.New()
	orderRepo.orders[orphanID] = &models.Order{ID: orphanID, Complete: true}
	orderRepo.orders[claimedID] = &models.Order{ID: claimedID, Complete: true, CustomerID: &other}
	customers := &stubCustomerLoader{customers: map[uuid.UUID]*models.Customer{
		customerID: {ID: customerID},
	}}
	svc := newTestService(t, orderRepo, &stubCartRepo{}, customers, &stubCouponResolver{}, &stubStateClearer{}, &stubMailer{})

	affected, err := svc.RelinkOrders(context.Background(), customerID, []uuid.UUID{orphanID, claimedID})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if affected != 1 {
		t.Fatalf("expected 1 relinked got %d", affected)
	}
}
