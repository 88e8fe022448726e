package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"

	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

func TestOwnerValidateSingleSide(t *testing.T) {
	customerID := uuid.New()

	if err := CustomerOwner(customerID).Validate(); err != nil {
		t.Fatalf("customer owner should validate, got %v", err)
	}
	if err := SessionOwner("sess-1").Validate(); err != nil {
		t.Fatalf("session owner should validate, got %v", err)
	}

	err := Owner{}.Validate()
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("empty owner should fail validation, got %v", err)
	}

	both := Owner{CustomerID: &customerID, SessionKey: "sess-1"}
	err = both.Validate()
	coded = pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("dual owner should fail validation, got %v", err)
	}
}

func TestOwnerValidateRejectsNilCustomerID(t *testing.T) {
	nilID := uuid.Nil
	err := Owner{CustomerID: &nilID}.Validate()
	coded := pkgerrors.As(err)
	if coded == nil || coded.Code() != pkgerrors.CodeValidation {
		t.Fatalf("nil customer id should fail validation, got %v", err)
	}
}

func TestOwnerKeyNamespaces(t *testing.T) {
	customerID := uuid.New()

	if got := CustomerOwner(customerID).Key(); got != "customer:"+customerID.String() {
		t.Fatalf("unexpected customer key %q", got)
	}
	if got := SessionOwner("sess-2").Key(); got != "session:sess-2" {
		t.Fatalf("unexpected session key %q", got)
	}
}

func TestOwnerContextRoundTrip(t *testing.T) {
	owner := SessionOwner("sess-3")
	ctx := WithOwner(context.Background(), owner)

	got, ok := OwnerFromContext(ctx)
	if !ok {
		t.Fatalf("owner missing from context")
	}
	if got.Key() != owner.Key() {
		t.Fatalf("unexpected owner %q", got.Key())
	}

	if _, ok := OwnerFromContext(context.Background()); ok {
		t.Fatalf("bare context should have no owner")
	}
}
