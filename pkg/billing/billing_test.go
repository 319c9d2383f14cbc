package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signedHeader(secret string, ts time.Time, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts.Unix(), body)))
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifySignatureValid(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"type":"checkout.session.completed"}`)
	now := time.Unix(1700000000, 0)
	header := signedHeader(secret, now, body)

	ok, err := VerifySignature(secret, header, body, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifySignatureTamperedBody(t *testing.T) {
	secret := "whsec_test"
	now := time.Unix(1700000000, 0)
	header := signedHeader(secret, now, []byte(`{"type":"a"}`))

	ok, _ := VerifySignature(secret, header, []byte(`{"type":"b"}`), now)
	if ok {
		t.Fatal("expected tampered body to fail verification")
	}
}

func TestVerifySignatureOutsideSkew(t *testing.T) {
	secret := "whsec_test"
	signedAt := time.Unix(1700000000, 0)
	body := []byte(`{"type":"checkout.session.completed"}`)
	header := signedHeader(secret, signedAt, body)

	later := signedAt.Add(10 * time.Minute)
	ok, err := VerifySignature(secret, header, body, later)
	if err == nil || ok {
		t.Fatal("expected signature outside skew window to be rejected")
	}
}

func TestVerifySignatureMalformedHeader(t *testing.T) {
	if _, err := VerifySignature("secret", "not-a-valid-header", []byte("{}"), time.Now()); err == nil {
		t.Fatal("expected error for malformed signature header")
	}
}

func TestParseEventCheckoutSession(t *testing.T) {
	body := []byte(`{"type":"checkout.session.completed","data":{"object":{"metadata":{"org_id":"11111111-1111-1111-1111-111111111111"}}}}`)
	e, err := parseEvent(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Type != EventCheckoutSessionCompleted {
		t.Fatalf("type = %q", e.Type)
	}
	if e.Data.Object.Metadata.OrgID != "11111111-1111-1111-1111-111111111111" {
		t.Fatalf("org_id = %q", e.Data.Object.Metadata.OrgID)
	}
}

func TestParseEventSubscriptionStatus(t *testing.T) {
	body := []byte(`{"type":"customer.subscription.deleted","data":{"object":{"status":"canceled","metadata":{"org_id":"x"}}}}`)
	e, err := parseEvent(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !suspendStatuses[e.Data.Object.Status] {
		t.Fatalf("expected %q to be a suspend status", e.Data.Object.Status)
	}
}
