package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/librastore/librashop-backend/api/responses"
	"github.com/librastore/librashop-backend/api/validators"
	"github.com/librastore/librashop-backend/internal/checkout"
	"github.com/librastore/librashop-backend/internal/identity"
	"github.com/librastore/librashop-backend/internal/orders"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
	"github.com/librastore/librashop-backend/pkg/logger"
)

type applyCouponPayload struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

type selectAddressPayload struct {
	AddressID string `json:"address_id" validate:"required,uuid"`
}

type sessionFetcher interface {
	GetSession(ctx context.Context, id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type orderFinalizer interface {
	Finalize(ctx context.Context, confirmation orders.Confirmation) (orders.OrderDTO, error)
}

// CheckoutSummary returns the pre-payment totals for the owner's cart.
func CheckoutSummary(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, ok := identity.OwnerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner missing"))
			return
		}

		summary, err := svc.Summary(ctx, owner)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CheckoutApplyCoupon validates and stores a coupon code for the upcoming session.
func CheckoutApplyCoupon(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, ok := identity.OwnerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner missing"))
			return
		}

		var payload applyCouponPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summary, err := svc.ApplyCoupon(ctx, owner, strings.TrimSpace(payload.Code))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CheckoutRemoveCoupon clears the applied coupon.
func CheckoutRemoveCoupon(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, ok := identity.OwnerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner missing"))
			return
		}

		summary, err := svc.RemoveCoupon(ctx, owner)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CheckoutSelectAddress records the shipping address for the upcoming session.
func CheckoutSelectAddress(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, ok := identity.OwnerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner missing"))
			return
		}

		var payload selectAddressPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		addressID, err := validators.ParsePathUUID(payload.AddressID, "address_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summary, err := svc.SelectAddress(ctx, owner, addressID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// CheckoutSession builds the hosted payment session and returns its URL.
func CheckoutSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		owner, ok := identity.OwnerFromContext(ctx)
		if !ok {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner missing"))
			return
		}

		session, err := svc.BuildSession(ctx, owner)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// CheckoutConfirm finalizes an order from the success redirect. The webhook
// remains the primary path; finalization is idempotent so racing deliveries
// converge on the same order.
func CheckoutConfirm(gateway sessionFetcher, finalizer orderFinalizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if gateway == nil || finalizer == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout confirmation unavailable"))
			return
		}

		sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
		if sessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required"))
			return
		}

		session, err := gateway.GetSession(ctx, sessionID, nil)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch checkout session"))
			return
		}
		if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "payment not completed"))
			return
		}

		transactionID := session.ID
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			transactionID = session.PaymentIntent.ID
		}

		order, err := finalizer.Finalize(ctx, orders.Confirmation{
			TransactionID: transactionID,
			Metadata:      session.Metadata,
			Source:        "redirect",
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
