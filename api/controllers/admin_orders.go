package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/librastore/librashop-backend/api/responses"
	"github.com/librastore/librashop-backend/api/validators"
	"github.com/librastore/librashop-backend/internal/orders"
	"github.com/librastore/librashop-backend/pkg/enums"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
	"github.com/librastore/librashop-backend/pkg/logger"
	"github.com/librastore/librashop-backend/pkg/pagination"
)

type updateTrackingPayload struct {
	Stage          string  `json:"stage" validate:"required"`
	TrackingNumber *string `json:"tracking_number,omitempty" validate:"omitempty,max=100"`
	Carrier        *string `json:"carrier,omitempty" validate:"omitempty,max=100"`
}

type relinkOrdersPayload struct {
	CustomerID string   `json:"customer_id" validate:"required,uuid"`
	OrderIDs   []string `json:"order_ids" validate:"required,min=1,dive,uuid"`
}

// AdminOrderList returns every order, newest first.
func AdminOrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		page, err := svc.ListAllOrders(ctx, cursor, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminUpdateTracking sets an order's fulfillment stage and shipment fields.
func AdminUpdateTracking(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload updateTrackingPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		stage := enums.TrackingStage(strings.ToLower(strings.TrimSpace(payload.Stage)))
		if !stage.IsValid() {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown tracking stage").WithDetails(map[string]any{"stage": payload.Stage}))
			return
		}

		dto, err := svc.UpdateTracking(ctx, orderID, orders.TrackingInput{
			Stage:          stage,
			TrackingNumber: payload.TrackingNumber,
			Carrier:        payload.Carrier,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// AdminOrphanOrders lists completed orders with no customer attached.
func AdminOrphanOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orphans, err := svc.ListOrphans(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orphans)
	}
}

// AdminRelinkOrders attaches orphan orders to a customer.
func AdminRelinkOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var payload relinkOrdersPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customerID, err := validators.ParsePathUUID(payload.CustomerID, "customer_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderIDs := make([]uuid.UUID, 0, len(payload.OrderIDs))
		for _, raw := range payload.OrderIDs {
			id, err := validators.ParsePathUUID(raw, "order_ids")
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			orderIDs = append(orderIDs, id)
		}

		relinked, err := svc.RelinkOrders(ctx, customerID, orderIDs)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int64{"relinked": relinked})
	}
}
