package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/librastore/librashop-backend/pkg/errors"
	"github.com/librastore/librashop-backend/pkg/logger"
)

type stubWebhookService struct {
	err    error
	events []string
}

func (s *stubWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	s.events = append(s.events, event.ID)
	return s.err
}

type stubGuard struct {
	seen      bool
	deleted   []string
	deleteErr error
}

func (s *stubGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	return s.seen, nil
}

func (s *stubGuard) Delete(ctx context.Context, eventID string) error {
	s.deleted = append(s.deleted, eventID)
	return s.deleteErr
}

type stubSigningClient struct {
	secret string
}

func (s stubSigningClient) SigningSecret() string { return s.secret }

func eventPayload(t *testing.T, eventID string) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        "checkout.session.completed",
		"data":        map[string]any{"object": map[string]any{"id": "cs_1"}},
	})
	if err != nil {
		t.Fatalf("marshal event payload: %v", err)
	}
	return payload
}

func signHeader(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func serveWebhook(svc *stubWebhookService, guard *stubGuard, secret string, payload []byte, sig string, logg *logger.Logger) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if sig != "" {
		req.Header.Set("Stripe-Signature", sig)
	}
	rec := httptest.NewRecorder()
	StripeWebhook(svc, stubSigningClient{secret: secret}, guard, logg)(rec, req)
	return rec
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	svc := &stubWebhookService{}
	guard := &stubGuard{}
	payload := eventPayload(t, "evt_sig")

	rec := serveWebhook(svc, guard, "whsec_real", payload, signHeader(payload, "whsec_wrong"), nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("unverified event must not reach the service")
	}
}

func TestStripeWebhookSkipsDuplicateDelivery(t *testing.T) {
	svc := &stubWebhookService{}
	guard := &stubGuard{seen: true}
	payload := eventPayload(t, "evt_dup")

	rec := serveWebhook(svc, guard, "whsec_test", payload, signHeader(payload, "whsec_test"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(svc.events) != 0 {
		t.Fatal("duplicate delivery must not reach the service")
	}
}

func TestStripeWebhookLogsGuardReleaseFailure(t *testing.T) {
	svc := &stubWebhookService{err: pkgerrors.New(pkgerrors.CodeDependency, "db unavailable")}
	guard := &stubGuard{deleteErr: errors.New("redis connection lost")}
	payload := eventPayload(t, "evt_fail")

	var logs bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &logs})

	rec := serveWebhook(svc, guard, "whsec_test", payload, signHeader(payload, "whsec_test"), logg)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
	if len(guard.deleted) != 1 || guard.deleted[0] != "evt_fail" {
		t.Fatalf("expected idempotency key released for evt_fail got %v", guard.deleted)
	}
	if !strings.Contains(logs.String(), "release idempotency key for stripe event evt_fail") {
		t.Fatalf("release failure not logged: %s", logs.String())
	}
}
