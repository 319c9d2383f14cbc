package identity

import (
	"strings"
	"testing"
	"time"
)

func TestActivationKeyExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		key  ActivationKey
		want bool
	}{
		{"no expiry", ActivationKey{}, false},
		{"expires in the future", ActivationKey{ExpiresAt: &future}, false},
		{"expired", ActivationKey{ExpiresAt: &past}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.key.Expired(now); got != tc.want {
				t.Errorf("Expired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestActivationKeyExhausted(t *testing.T) {
	cases := []struct {
		name string
		key  ActivationKey
		want bool
	}{
		{"under limit", ActivationKey{MaxUses: 5, UsesCount: 4}, false},
		{"at limit", ActivationKey{MaxUses: 5, UsesCount: 5}, true},
		{"over limit", ActivationKey{MaxUses: 5, UsesCount: 6}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.key.Exhausted(); got != tc.want {
				t.Errorf("Exhausted() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGenerateSecretIsUniqueAndPrefixed(t *testing.T) {
	a := generateSecret(ActivationKeyPrefix)
	b := generateSecret(ActivationKeyPrefix)

	if a == b {
		t.Error("expected distinct secrets across calls")
	}
	if !strings.HasPrefix(a, ActivationKeyPrefix) {
		t.Errorf("secret %q missing prefix %q", a, ActivationKeyPrefix)
	}
}

func TestHashSecretIsDeterministicAndNotReversible(t *testing.T) {
	raw := "trq_ak_exampleexampleexample"
	h1 := hashSecret(raw)
	h2 := hashSecret(raw)

	if h1 != h2 {
		t.Error("expected hashSecret to be deterministic for the same input")
	}
	if h1 == raw {
		t.Error("hash must not equal the raw secret")
	}
}
