// Package cursor provides opaque keyset pagination tokens.
//
// Lists are ordered newest first on (created_at DESC, id DESC); a token
// records the last row of the previous page and a hash of the filter that
// produced it.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultPageSize applies when the caller does not request a size.
	DefaultPageSize = 50
	// MaxPageSize caps any requested size.
	MaxPageSize = 200
)

// ErrInvalid is returned for malformed or mismatched tokens.
var ErrInvalid = errors.New("invalid page token")

// Cursor is the decoded state of a page token.
type Cursor struct {
	// CreatedAt is the unix-millisecond creation time of the last row served.
	CreatedAt int64 `json:"c"`
	// ID breaks ties between rows created in the same millisecond.
	ID string `json:"i"`
	// FilterHash invalidates tokens when the filter changes.
	FilterHash string `json:"f,omitempty"`
}

// Encode encodes a cursor to an opaque URL-safe string.
func Encode(c Cursor) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode decodes a token and checks it was issued for filter.
func Decode(token, filter string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, fmt.Errorf("%w: empty token", ErrInvalid)
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.ID == "" {
		return Cursor{}, fmt.Errorf("%w: missing row id", ErrInvalid)
	}
	if c.FilterHash != HashFilter(filter) {
		return Cursor{}, fmt.Errorf("%w: filter changed since cursor was created", ErrInvalid)
	}
	return c, nil
}

// Next builds the token for the page after the given last row.
func Next(createdAt int64, id, filter string) (string, error) {
	return Encode(Cursor{CreatedAt: createdAt, ID: id, FilterHash: HashFilter(filter)})
}

// HashFilter computes a short hash of the filter string. Returns empty for an
// empty filter.
func HashFilter(filter string) string {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return ""
	}
	h := sha256.Sum256([]byte(filter))
	return hex.EncodeToString(h[:8])
}

// PageSize clamps a requested page size to [1, MaxPageSize], defaulting to
// DefaultPageSize.
func PageSize(requested int) int {
	switch {
	case requested <= 0:
		return DefaultPageSize
	case requested > MaxPageSize:
		return MaxPageSize
	default:
		return requested
	}
}
