package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

// Owner identifies who a cart belongs to: a signed-in customer or an
// anonymous browser session. Exactly one side is set.
type Owner struct {
	CustomerID *uuid.UUID
	SessionKey string
}

// CustomerOwner builds an owner for a signed-in customer.
func CustomerOwner(customerID uuid.UUID) Owner {
	return Owner{CustomerID: &customerID}
}

// SessionOwner builds an owner for an anonymous session key.
func SessionOwner(sessionKey string) Owner {
	return Owner{SessionKey: sessionKey}
}

// IsCustomer reports whether the owner is a signed-in customer.
func (o Owner) IsCustomer() bool {
	return o.CustomerID != nil && *o.CustomerID != uuid.Nil
}

// Validate enforces the single-owner rule.
func (o Owner) Validate() error {
	hasCustomer := o.IsCustomer()
	hasSession := o.SessionKey != ""
	if hasCustomer == hasSession {
		return pkgerrors.New(pkgerrors.CodeValidation, "exactly one of customer or session owner is required")
	}
	return nil
}

// Key returns a stable string used to namespace per-owner storage such as
// pending checkout state.
func (o Owner) Key() string {
	if o.IsCustomer() {
		return fmt.Sprintf("customer:%s", o.CustomerID.String())
	}
	return fmt.Sprintf("session:%s", o.SessionKey)
}

type ctxKey struct{}

// WithOwner attaches the resolved owner to the request context.
func WithOwner(ctx context.Context, owner Owner) context.Context {
	return context.WithValue(ctx, ctxKey{}, owner)
}

// OwnerFromContext extracts the owner placed by the middleware, if any.
func OwnerFromContext(ctx context.Context) (Owner, bool) {
	owner, ok := ctx.Value(ctxKey{}).(Owner)
	return owner, ok
}
