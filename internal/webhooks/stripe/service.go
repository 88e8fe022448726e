package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/librastore/librashop-backend/internal/orders"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
	"github.com/librastore/librashop-backend/pkg/metrics"
)

const sourceWebhook = "webhook"

type orderFinalizer interface {
	Finalize(ctx context.Context, confirmation orders.Confirmation) (orders.OrderDTO, error)
}

// ServiceParams groups dependencies for the webhook service.
type ServiceParams struct {
	Orders  orderFinalizer
	Metrics *metrics.CheckoutMetrics
}

// Service routes verified gateway events into the order finalizer.
type Service struct {
	orders  orderFinalizer
	metrics *metrics.CheckoutMetrics
}

// NewService builds a webhook service with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order finalizer required")
	}
	return &Service{orders: params.Orders, metrics: params.Metrics}, nil
}

// HandleEvent processes one verified event. Event types outside the checkout
// flow are acknowledged without action so the gateway stops retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			s.metrics.IncWebhookEvent(string(event.Type), "decode_error")
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.handleSessionCompleted(ctx, string(event.Type), &session)
	default:
		s.metrics.IncWebhookEvent(string(event.Type), "ignored")
		return nil
	}
}

func (s *Service) handleSessionCompleted(ctx context.Context, eventType string, session *stripe.CheckoutSession) error {
	// Async payment methods complete the session before the charge settles;
	// those sessions finalize when the gateway sends
	// checkout.session.async_payment_succeeded, or via the success redirect
	// once paid.
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		s.metrics.IncWebhookEvent(eventType, "unpaid")
		return nil
	}

	confirmation := orders.Confirmation{
		TransactionID: transactionID(session),
		Metadata:      session.Metadata,
		Source:        sourceWebhook,
	}
	if _, err := s.orders.Finalize(ctx, confirmation); err != nil {
		s.metrics.IncWebhookEvent(eventType, "error")
		return err
	}
	s.metrics.IncWebhookEvent(eventType, "processed")
	return nil
}

func transactionID(session *stripe.CheckoutSession) string {
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		return session.PaymentIntent.ID
	}
	return session.ID
}
