package controllers

import (
	"net/http"

	"github.com/librastore/librashop-backend/api/responses"
	"github.com/librastore/librashop-backend/internal/coupons"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
	"github.com/librastore/librashop-backend/pkg/logger"
)

// OfferList returns the currently redeemable coupons for the storefront
// offers page.
func OfferList(svc coupons.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupons service unavailable"))
			return
		}

		offers, err := svc.ListOffers(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, offers)
	}
}
