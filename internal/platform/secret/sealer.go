// Package secret encrypts small values, such as TOTP seeds, before they are
// written to storage.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// KeySize is the sealing key length in bytes (AES-256).
const KeySize = 32

const versionPrefix = "v1."

// ErrNotConfigured is returned by a nil or zero sealer.
var ErrNotConfigured = errors.New("sealer is not configured")

// Sealer seals and opens secrets.
type Sealer interface {
	Seal(value string) (string, error)
	Open(sealed string) (string, error)
}

// AESGCMSealer seals values with AES-256-GCM. Sealed values are
// "v1." + raw base64 of nonce || ciphertext.
type AESGCMSealer struct {
	aead   cipher.AEAD
	random io.Reader
}

// NewAESGCMSealer builds a sealer from a 32-byte key.
func NewAESGCMSealer(key []byte) (*AESGCMSealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("sealing key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return &AESGCMSealer{aead: aead, random: rand.Reader}, nil
}

// Seal encrypts one plaintext value.
func (s *AESGCMSealer) Seal(value string) (string, error) {
	if s == nil || s.aead == nil {
		return "", ErrNotConfigured
	}
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(s.random, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	payload := s.aead.Seal(nonce, nonce, []byte(value), nil)
	return versionPrefix + base64.RawStdEncoding.EncodeToString(payload), nil
}

// Open decrypts one previously sealed value.
func (s *AESGCMSealer) Open(sealed string) (string, error) {
	if s == nil || s.aead == nil {
		return "", ErrNotConfigured
	}
	encoded, ok := strings.CutPrefix(sealed, versionPrefix)
	if !ok {
		return "", fmt.Errorf("unsupported sealed value version")
	}
	payload, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	nonceSize := s.aead.NonceSize()
	if len(payload) < nonceSize+s.aead.Overhead() {
		return "", fmt.Errorf("sealed value is too short")
	}
	plaintext, err := s.aead.Open(nil, payload[:nonceSize], payload[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decrypt sealed value: %w", err)
	}
	return string(plaintext), nil
}
