// Package webhook implements delivery-platform webhook ingress (component
// H): provider-specific signature verification, provider-store-reference
// extraction, normalization into a canonical order shape, idempotent
// upsert, and command enqueue. Grounded on the teacher's pkg/slack/verify.go
// and pkg/mattermost/verify.go (constant-time HMAC hex compare; there is no
// bypass when no secret is configured) generalized into a small per-provider
// verify-strategy table, and pkg/integration/callout.go's Caller interface
// pattern for the Uber Eats order-fetch step.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
)

// Verify strategy tags, the closed set spec.md §9 names.
const (
	StrategyDeliverooGuid    = "deliveroo_guid"
	StrategyUberClientSecret = "uber_client_secret"
	StrategySharedSecretHex  = "shared_secret_hex"
	StrategyNone             = "none"
)

// hmacHexEqual computes HMAC-SHA256(key, mac) and compares it in constant
// time to the hex string presented by the caller.
func hmacHexEqual(key, mac string, presented string) bool {
	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(mac))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(presented))
}

// VerifyDeliveroo checks X-Deliveroo-Hmac-Sha256 over `guid + " " + body`,
// keyed by the integration's webhook secret (spec §4.6 policy table).
func VerifyDeliveroo(secret string, headers http.Header, body []byte) (bool, error) {
	guid := headers.Get("X-Deliveroo-Sequence-Guid")
	sig := headers.Get("X-Deliveroo-Hmac-Sha256")
	if guid == "" || sig == "" {
		return false, fmt.Errorf("missing deliveroo signature headers")
	}
	mac := guid + " " + string(body)
	return hmacHexEqual(secret, mac, sig), nil
}

// VerifyUberEats checks X-Uber-Signature (lowercase hex) over the raw body,
// keyed by the integration's client secret.
func VerifyUberEats(secret string, headers http.Header, body []byte) (bool, error) {
	sig := headers.Get("X-Uber-Signature")
	if sig == "" {
		return false, fmt.Errorf("missing uber eats signature header")
	}
	return hmacHexEqual(secret, string(body), sig), nil
}

// VerifyJustEat is disabled: spec.md §4.6 documents no verification scheme
// available for Just Eat, so every request, signed or not, is accepted as-is.
func VerifyJustEat(secret string, headers http.Header, body []byte) (bool, error) {
	return true, nil
}

// VerifySharedSecretHex checks a generic `X-*-Signature` hex header over
// the raw body, for built-in/test integrations that carry their own shared
// secret rather than a provider-mandated scheme.
func VerifySharedSecretHex(secret string, headerName string, headers http.Header, body []byte) (bool, error) {
	sig := headers.Get(headerName)
	if sig == "" {
		return false, fmt.Errorf("missing signature header %s", headerName)
	}
	return hmacHexEqual(secret, string(body), sig), nil
}
