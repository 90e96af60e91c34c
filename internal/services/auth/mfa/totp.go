// Package mfa implements RFC 6238 time-based one-time passwords.
package mfa

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

const (
	// Digits is the code length.
	Digits = 6
	// Period is the time step.
	Period = 30 * time.Second
	// Skew is the number of steps accepted on either side of now.
	Skew = 1
	// SecretSize is the number of random bytes in a generated secret.
	SecretSize = 20
	// Issuer labels secrets in authenticator apps.
	Issuer = "Baranex"
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// ErrInvalidSecret is returned for secrets that do not decode.
var ErrInvalidSecret = errors.New("invalid totp secret")

// GenerateSecret returns a new base32 secret (no padding) read from random.
func GenerateSecret(random io.Reader) (string, error) {
	buf := make([]byte, SecretSize)
	if _, err := io.ReadFull(random, buf); err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return b32.EncodeToString(buf), nil
}

// NewSecret generates a secret from crypto/rand.
func NewSecret() (string, error) {
	return GenerateSecret(rand.Reader)
}

// DecodeSecret decodes a base32 secret, tolerating lower case, spaces,
// dashes and padding.
func DecodeSecret(secret string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '=', '\t':
			return -1
		}
		return r
	}, strings.ToUpper(secret))
	if cleaned == "" {
		return nil, ErrInvalidSecret
	}
	key, err := b32.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	return key, nil
}

// Step returns the time step counter for t.
func Step(t time.Time) int64 {
	return t.Unix() / int64(Period/time.Second)
}

// CodeAt computes the code for key at a step counter.
func CodeAt(key []byte, step int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(step))
	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	value := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff
	return fmt.Sprintf("%0*d", Digits, value%1_000_000)
}

// Code computes the code for a base32 secret at time t.
func Code(secret string, t time.Time) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	return CodeAt(key, Step(t)), nil
}

// Validate checks code against secret within ±Skew steps of t. It returns the
// matched step so callers can reject replays; a step at or below lastUsed is
// never accepted.
func Validate(secret, code string, t time.Time, lastUsed int64) (int64, bool, error) {
	code = strings.TrimSpace(code)
	if len(code) != Digits || strings.Trim(code, "0123456789") != "" {
		return 0, false, nil
	}
	key, err := DecodeSecret(secret)
	if err != nil {
		return 0, false, err
	}
	current := Step(t)
	for delta := -Skew; delta <= Skew; delta++ {
		step := current + int64(delta)
		if step <= lastUsed {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(CodeAt(key, step)), []byte(code)) == 1 {
			return step, true, nil
		}
	}
	return 0, false, nil
}

// URI builds the otpauth:// provisioning URI for an account.
func URI(account, secret string) string {
	label := url.PathEscape(Issuer + ":" + account)
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", Issuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", fmt.Sprint(Digits))
	q.Set("period", fmt.Sprint(int(Period/time.Second)))
	return "otpauth://totp/" + label + "?" + q.Encode()
}
