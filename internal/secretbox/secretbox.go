// Package secretbox encrypts provider credentials (delivery-platform API
// keys, webhook shared secrets) at rest using AES-256-GCM.
//
// No library in the retrieved pack wraps authenticated encryption beyond
// what crypto/aes and crypto/cipher already provide directly, so this
// component is built on the standard library rather than a third-party AEAD
// wrapper (see DESIGN.md).
package secretbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrInvalidKey indicates the configured key is not 32 raw bytes.
var ErrInvalidKey = errors.New("secretbox: key must decode to 32 bytes")

// ErrCiphertext indicates a ciphertext could not be decrypted, either
// because it is malformed or because authentication failed.
var ErrCiphertext = errors.New("secretbox: ciphertext invalid or tampered")

// Box encrypts and decrypts secrets with a single AES-256-GCM key.
type Box struct {
	aead cipher.AEAD
}

// New builds a Box from a base64-encoded 32-byte key, as loaded from
// config.Config.SecretBoxKeyBase64.
func New(keyBase64 string) (*Box, error) {
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secretbox: building cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secretbox: building GCM: %w", err)
	}

	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext and returns a base64-encoded blob of
// nonce || ciphertext || tag, safe to store in a text column. Empty
// plaintext round-trips to an empty ciphertext (an absent credential stays
// absent rather than becoming a sealed empty string).
func (b *Box) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secretbox: generating nonce: %w", err)
	}

	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a blob produced by Seal. An empty input is the encoding of
// an empty plaintext, not a malformed ciphertext, and round-trips to "".
func (b *Box) Open(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}

	nonceSize := b.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrCiphertext
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrCiphertext
	}

	return string(plaintext), nil
}
