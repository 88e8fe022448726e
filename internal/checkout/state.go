package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/librastore/librashop-backend/internal/identity"
	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
)

// State is the pending checkout selection for one cart owner: the applied
// coupon code and the chosen shipping address. It lives in redis so it
// survives across requests without touching the cart rows.
type State struct {
	CouponCode        string     `json:"coupon_code,omitempty"`
	ShippingAddressID *uuid.UUID `json:"shipping_address_id,omitempty"`
}

// IsEmpty reports whether there is nothing to persist.
func (s State) IsEmpty() bool {
	return s.CouponCode == "" && s.ShippingAddressID == nil
}

type stateStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CheckoutStateKey(ownerKey string) string
}

// StateStore persists checkout state in redis with a bounded TTL.
type StateStore struct {
	storage stateStorage
	ttl     time.Duration
}

// NewStateStore builds a state store over the provided redis client.
func NewStateStore(storage stateStorage, ttl time.Duration) (*StateStore, error) {
	if storage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "state storage is required")
	}
	if ttl <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "state ttl must be positive")
	}
	return &StateStore{storage: storage, ttl: ttl}, nil
}

// Load returns the owner's pending state; a missing key is an empty state.
func (s *StateStore) Load(ctx context.Context, owner identity.Owner) (State, error) {
	raw, err := s.storage.Get(ctx, s.storage.CheckoutStateKey(owner.Key()))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return State{}, nil
		}
		return State{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout state")
	}
	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return State{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode checkout state")
	}
	return state, nil
}

// Save writes the owner's pending state, refreshing the TTL. An empty state
// clears the key instead.
func (s *StateStore) Save(ctx context.Context, owner identity.Owner, state State) error {
	key := s.storage.CheckoutStateKey(owner.Key())
	if state.IsEmpty() {
		if err := s.storage.Del(ctx, key); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear checkout state")
		}
		return nil
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout state")
	}
	if err := s.storage.Set(ctx, key, string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save checkout state")
	}
	return nil
}

// Clear drops the owner's pending state.
func (s *StateStore) Clear(ctx context.Context, owner identity.Owner) error {
	if err := s.storage.Del(ctx, s.storage.CheckoutStateKey(owner.Key())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear checkout state")
	}
	return nil
}
