package stripewebhook

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	"github.com/librastore/librashop-backend/internal/orders"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
	"github.com/librastore/librashop-backend/pkg/metrics"
)

type stubFinalizer struct {
	confirmations []orders.Confirmation
	err           error
}

func (s *stubFinalizer) Finalize(ctx context.Context, confirmation orders.Confirmation) (orders.OrderDTO, error) {
	s.confirmations = append(s.confirmations, confirmation)
	if s.err != nil {
		return orders.OrderDTO{}, s.err
	}
	return orders.OrderDTO{}, nil
}

func newWebhookService(t *testing.T, finalizer *stubFinalizer) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Orders:  finalizer,
		Metrics: metrics.NewCheckoutMetrics(nil),
	})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func sessionEvent(t *testing.T, session stripe.CheckoutSession) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_1",
		Type: stripe.EventTypeCheckoutSessionCompleted,
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestHandleEventFinalizesPaidSession(t *testing.T) {
	finalizer := &stubFinalizer{}
	svc := newWebhookService(t, finalizer)

	event := sessionEvent(t, stripe.CheckoutSession{
		ID:            "cs_test_42",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test_42"},
		Metadata:      map[string]string{"cart_id": "abc"},
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(finalizer.confirmations) != 1 {
		t.Fatalf("expected one finalization got %d", len(finalizer.confirmations))
	}
	got := finalizer.confirmations[0]
	if got.TransactionID != "pi_test_42" {
		t.Fatalf("expected payment intent id got %q", got.TransactionID)
	}
	if got.Source != sourceWebhook {
		t.Fatalf("unexpected source %q", got.Source)
	}
	if got.Metadata["cart_id"] != "abc" {
		t.Fatalf("metadata not forwarded: %v", got.Metadata)
	}
}

func TestHandleEventFallsBackToSessionID(t *testing.T) {
	finalizer := &stubFinalizer{}
	svc := newWebhookService(t, finalizer)

	event := sessionEvent(t, stripe.CheckoutSession{
		ID:            "cs_test_43",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if finalizer.confirmations[0].TransactionID != "cs_test_43" {
		t.Fatalf("expected session id fallback got %q", finalizer.confirmations[0].TransactionID)
	}
}

func TestHandleEventFinalizesAsyncPaymentSuccess(t *testing.T) {
	finalizer := &stubFinalizer{}
	svc := newWebhookService(t, finalizer)

	// Bank-debit style payments send session.completed while unpaid, then
	// confirm with async_payment_succeeded once the charge settles.
	event := sessionEvent(t, stripe.CheckoutSession{
		ID:            "cs_test_46",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test_46"},
		Metadata:      map[string]string{"cart_id": "def"},
	})
	event.Type = stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(finalizer.confirmations) != 1 {
		t.Fatalf("expected one finalization got %d", len(finalizer.confirmations))
	}
	if finalizer.confirmations[0].TransactionID != "pi_test_46" {
		t.Fatalf("expected payment intent id got %q", finalizer.confirmations[0].TransactionID)
	}
}

func TestHandleEventSkipsUnpaidSession(t *testing.T) {
	finalizer := &stubFinalizer{}
	svc := newWebhookService(t, finalizer)

	event := sessionEvent(t, stripe.CheckoutSession{
		ID:            "cs_test_44",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
	})

	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unpaid session should be acknowledged, got %v", err)
	}
	if len(finalizer.confirmations) != 0 {
		t.Fatalf("unpaid session must not finalize")
	}
}

func TestHandleEventIgnoresUnrelatedTypes(t *testing.T) {
	finalizer := &stubFinalizer{}
	svc := newWebhookService(t, finalizer)

	event := &stripe.Event{
		ID:   "evt_2",
		Type: stripe.EventTypeInvoicePaid,
		Data: &stripe.EventData{Raw: []byte(`{}`)},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unrelated events should be acknowledged, got %v", err)
	}
	if len(finalizer.confirmations) != 0 {
		t.Fatalf("unrelated events must not finalize")
	}
}

func TestHandleEventPropagatesFinalizeError(t *testing.T) {
	finalizer := &stubFinalizer{err: pkgerrors.New(pkgerrors.CodeDependency, "db unavailable")}
	svc := newWebhookService(t, finalizer)

	event := sessionEvent(t, stripe.CheckoutSession{
		ID:            "cs_test_45",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
	})

	err := svc.HandleEvent(context.Background(), event)
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error got %v", err)
	}
}

type stubIdempotencyStore struct {
	keys map[string]string
}

func (s *stubIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	panic("not implemented")
}

func (s *stubIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = "1"
	return true, nil
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (s *stubIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func TestIdempotencyGuardMarksOnce(t *testing.T) {
	store := &stubIdempotencyStore{keys: map[string]string{}}
	guard, err := NewIdempotencyGuard(store, time.Hour, "stripe")
	if err != nil {
		t.Fatalf("guard constructor failed: %v", err)
	}

	seen, err := guard.CheckAndMark(context.Background(), "evt_9")
	if err != nil || seen {
		t.Fatalf("first delivery should not be seen: seen=%v err=%v", seen, err)
	}
	seen, err = guard.CheckAndMark(context.Background(), "evt_9")
	if err != nil || !seen {
		t.Fatalf("second delivery should be seen: seen=%v err=%v", seen, err)
	}

	// A failed handler unmarks the event so the gateway retry is processed.
	if err := guard.Delete(context.Background(), "evt_9"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	seen, err = guard.CheckAndMark(context.Background(), "evt_9")
	if err != nil || seen {
		t.Fatalf("retry after delete should not be seen: seen=%v err=%v", seen, err)
	}
}
