package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/librastore/librashop-backend/internal/identity"
)

type fakeStateStorage struct {
	values map[string]string
	sets   int
	dels   int
}

func newFakeStateStorage() *fakeStateStorage {
	return &fakeStateStorage{values: map[string]string{}}
}

func (f *fakeStateStorage) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeStateStorage) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	f.sets++
	f.values[key] = value.(string)
	return nil
}

func (f *fakeStateStorage) Del(ctx context.Context, keys ...string) error {
	f.dels++
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeStateStorage) CheckoutStateKey(ownerKey string) string {
	return "checkout:state:" + ownerKey
}

func newTestStateStore(t *testing.T, storage *fakeStateStorage) *StateStore {
	t.Helper()
	store, err := NewStateStore(storage, time.Hour)
	if err != nil {
		t.Fatalf("state store constructor failed: %v", err)
	}
	return store
}

func TestStateLoadMissingKeyIsEmpty(t *testing.T) {
	store := newTestStateStore(t, newFakeStateStorage())

	state, err := store.Load(context.Background(), identity.SessionOwner("sess-1"))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !state.IsEmpty() {
		t.Fatalf("expected empty state got %+v", state)
	}
}

func TestStateSaveAndLoadRoundTrip(t *testing.T) {
	storage := newFakeStateStorage()
	store := newTestStateStore(t, storage)
	owner := identity.SessionOwner("sess-2")
	addressID := uuid.New()

	saved := State{CouponCode: "FESTIVE20", ShippingAddressID: &addressID}
	if err := store.Save(context.Background(), owner, saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := store.Load(context.Background(), owner)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.CouponCode != "FESTIVE20" {
		t.Fatalf("unexpected coupon %q", loaded.CouponCode)
	}
	if loaded.ShippingAddressID == nil || *loaded.ShippingAddressID != addressID {
		t.Fatalf("unexpected address %v", loaded.ShippingAddressID)
	}
}

func TestStateSaveEmptyDeletesKey(t *testing.T) {
	storage := newFakeStateStorage()
	store := newTestStateStore(t, storage)
	owner := identity.SessionOwner("sess-3")

	if err := store.Save(context.Background(), owner, State{CouponCode: "SAVE10"}); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}
	if err := store.Save(context.Background(), owner, State{}); err != nil {
		t.Fatalf("empty save failed: %v", err)
	}

	if len(storage.values) != 0 {
		t.Fatalf("expected key removed got %d entries", len(storage.values))
	}
	if storage.dels != 1 {
		t.Fatalf("expected one delete got %d", storage.dels)
	}
}

func TestStateClear(t *testing.T) {
	storage := newFakeStateStorage()
	store := newTestStateStore(t, storage)
	owner := identity.CustomerOwner(uuid.New())

	if err := store.Save(context.Background(), owner, State{CouponCode: "SAVE10"}); err != nil {
		t.Fatalf("seed save failed: %v", err)
	}
	if err := store.Clear(context.Background(), owner); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	state, err := store.Load(context.Background(), owner)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !state.IsEmpty() {
		t.Fatalf("expected empty state after clear got %+v", state)
	}
}
