package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"testing"
)

func hexHMAC(t *testing.T, key, mac string) string {
	t.Helper()
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(mac))
	return hex.EncodeToString(h.Sum(nil))
}

func TestVerifyDeliveroo(t *testing.T) {
	secret := "wss"
	body := []byte(`{"location_id":"L1","order_id":"O9"}`)
	guid := "G"
	sig := hexHMAC(t, secret, guid+" "+string(body))

	headers := http.Header{}
	headers.Set("X-Deliveroo-Sequence-Guid", guid)
	headers.Set("X-Deliveroo-Hmac-Sha256", sig)

	ok, err := VerifyDeliveroo(secret, headers, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}

	headers.Set("X-Deliveroo-Hmac-Sha256", "deadbeef")
	ok, err = VerifyDeliveroo(secret, headers, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected tampered signature to fail")
	}
}

func TestVerifyDeliverooMissingHeaders(t *testing.T) {
	if _, err := VerifyDeliveroo("wss", http.Header{}, []byte("{}")); err == nil {
		t.Fatal("expected error for missing deliveroo headers")
	}
}

func TestVerifyUberEats(t *testing.T) {
	secret := "client-secret"
	body := []byte(`{"resource_href":"https://api.uber.com/v1/orders/o1"}`)
	sig := hexHMAC(t, secret, string(body))

	headers := http.Header{}
	headers.Set("X-Uber-Signature", sig)

	ok, err := VerifyUberEats(secret, headers, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}

	headers.Set("X-Uber-Signature", "0000")
	ok, _ = VerifyUberEats(secret, headers, body)
	if ok {
		t.Fatal("expected tampered signature to fail")
	}
}

func TestVerifyJustEatAlwaysPasses(t *testing.T) {
	ok, err := VerifyJustEat("", http.Header{}, []byte("anything"))
	if err != nil || !ok {
		t.Fatalf("just eat verification should always pass: ok=%v err=%v", ok, err)
	}
}

func TestVerifySharedSecretHex(t *testing.T) {
	secret := "shared"
	body := []byte(`{"order_id":"1"}`)
	sig := hexHMAC(t, secret, string(body))

	headers := http.Header{}
	headers.Set("X-Builtin-Signature", sig)

	ok, err := VerifySharedSecretHex(secret, "X-Builtin-Signature", headers, body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}

	if _, err := VerifySharedSecretHex(secret, "X-Builtin-Signature", http.Header{}, body); err == nil {
		t.Fatal("expected error for missing signature header")
	}
}
