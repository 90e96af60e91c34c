// Package token issues and verifies the HS256 JWTs Baranex hands to clients:
// access tokens and short-lived MFA challenge tokens.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/id"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

const (
	audienceAccess = "baranex-access"
	audienceMFA    = "baranex-mfa"

	// DefaultAccessTTL applies when Config.AccessTTL is zero.
	DefaultAccessTTL = 12 * time.Hour
	// ChallengeTTL bounds how long a password-verified login may wait for its
	// TOTP code.
	ChallengeTTL = 5 * time.Minute
	// MinKeySize is the shortest accepted signing key.
	MinKeySize = 32
)

// ErrInvalid is returned for any token that fails verification.
var ErrInvalid = apperrors.New(apperrors.CodeUnauthenticated, "invalid or expired token")

// Config configures token issuance.
type Config struct {
	SigningKey []byte
	Issuer     string
	AccessTTL  time.Duration
	Now        func() time.Time
	NewID      func() (string, error)
}

// Claims are the verified contents of an access token.
type Claims struct {
	UserID     string
	Role       user.Role
	BarangayID string
	ExpiresAt  time.Time
}

type accessClaims struct {
	jwt.RegisteredClaims
	Role       string `json:"role"`
	BarangayID string `json:"bid"`
}

// Issuer signs and verifies tokens.
type Issuer struct {
	key       []byte
	issuer    string
	accessTTL time.Duration
	now       func() time.Time
	newID     func() (string, error)
}

// NewIssuer validates cfg and builds an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.SigningKey) < MinKeySize {
		return nil, fmt.Errorf("signing key must be at least %d bytes", MinKeySize)
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		return nil, fmt.Errorf("token issuer is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	return &Issuer{
		key:       append([]byte(nil), cfg.SigningKey...),
		issuer:    issuer,
		accessTTL: cfg.AccessTTL,
		now:       cfg.Now,
		newID:     cfg.NewID,
	}, nil
}

// IssueAccess signs an access token for u.
func (i *Issuer) IssueAccess(u user.User) (string, time.Time, error) {
	now := i.now().UTC()
	expires := now.Add(i.accessTTL)
	jti, err := i.newID()
	if err != nil {
		return "", time.Time{}, err
	}
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   u.ID,
			Audience:  jwt.ClaimStrings{audienceAccess},
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
		Role:       string(u.Role),
		BarangayID: u.BarangayID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires, nil
}

// IssueChallenge signs an MFA challenge token for userID.
func (i *Issuer) IssueChallenge(userID string) (string, time.Time, error) {
	now := i.now().UTC()
	expires := now.Add(ChallengeTTL)
	jti, err := i.newID()
	if err != nil {
		return "", time.Time{}, err
	}
	claims := jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   userID,
		Audience:  jwt.ClaimStrings{audienceMFA},
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        jti,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign challenge token: %w", err)
	}
	return signed, expires, nil
}

// ParseAccess verifies an access token.
func (i *Issuer) ParseAccess(raw string) (Claims, error) {
	var parsed accessClaims
	if err := i.parse(raw, audienceAccess, &parsed); err != nil {
		return Claims{}, err
	}
	role := user.Role(parsed.Role)
	if !role.Valid() || parsed.BarangayID == "" {
		return Claims{}, ErrInvalid
	}
	return Claims{
		UserID:     parsed.Subject,
		Role:       role,
		BarangayID: parsed.BarangayID,
		ExpiresAt:  parsed.ExpiresAt.Time,
	}, nil
}

// ParseChallenge verifies an MFA challenge token and returns its user id.
func (i *Issuer) ParseChallenge(raw string) (string, error) {
	var parsed jwt.RegisteredClaims
	if err := i.parse(raw, audienceMFA, &parsed); err != nil {
		return "", apperrors.New(apperrors.CodeMFAChallengeFailed, "invalid or expired MFA challenge")
	}
	return parsed.Subject, nil
}

func (i *Issuer) parse(raw, audience string, claims jwt.Claims) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalid
	}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return errors.Join(ErrInvalid, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return ErrInvalid
	}
	return nil
}
