package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/librastore/librashop-backend/api/responses"
	"github.com/librastore/librashop-backend/internal/customers"
	"github.com/librastore/librashop-backend/internal/identity"
	pkgAuth "github.com/librastore/librashop-backend/pkg/auth"
	"github.com/librastore/librashop-backend/pkg/config"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
	"github.com/librastore/librashop-backend/pkg/logger"
)

const sessionKeyHeader = "X-Session-Key"

// Identity resolves the request owner. A valid bearer token maps to a
// customer, materialized locally on first sight; otherwise the session key
// header identifies an anonymous cart, minted and echoed when absent.
// An invalid or expired token is rejected rather than downgraded to a guest.
func Identity(cfg config.JWTConfig, customersSvc customers.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw != "" {
				token := raw
				if strings.HasPrefix(strings.ToLower(token), "bearer ") {
					token = strings.TrimSpace(token[7:])
				}
				if token == "" {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}

				claims, err := pkgAuth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}

				customer, err := customersSvc.EnsureByExternalID(r.Context(), customers.EnsureInput{
					ExternalUserID: claims.Subject,
					Name:           claims.Name,
					Email:          claims.Email,
				})
				if err != nil {
					responses.WriteError(r.Context(), logg, w, err)
					return
				}

				role := claims.Role
				if role == "" {
					role = pkgAuth.RoleCustomer
				}

				ctx := identity.WithOwner(r.Context(), identity.CustomerOwner(customer.ID))
				ctx = WithRole(ctx, role)
				if logg != nil {
					ctx = logg.WithCustomerID(ctx, customer.ID.String())
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			sessionKey := strings.TrimSpace(r.Header.Get(sessionKeyHeader))
			if sessionKey == "" {
				sessionKey = uuid.NewString()
			}
			w.Header().Set(sessionKeyHeader, sessionKey)

			ctx := identity.WithOwner(r.Context(), identity.SessionOwner(sessionKey))
			if logg != nil {
				ctx = logg.WithSessionKey(ctx, sessionKey)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCustomer rejects anonymous owners.
func RequireCustomer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner, ok := identity.OwnerFromContext(r.Context())
			if !ok || !owner.IsCustomer() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
