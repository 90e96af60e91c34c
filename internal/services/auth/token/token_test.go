package token

import (
	"bytes"
	"errors"
	"testing"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestIssuer(t *testing.T, clock *fakeClock) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(Config{
		SigningKey: bytes.Repeat([]byte{9}, 32),
		Issuer:     "baranex-test",
		AccessTTL:  time.Hour,
		Now:        clock.Now,
		NewID:      func() (string, error) { return "jti-1", nil },
	})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return issuer
}

func TestAccessRoundTrip(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)

	raw, expires, err := issuer.IssueAccess(user.User{ID: "user-1", Role: user.RoleOfficial, BarangayID: "brgy-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !expires.Equal(clock.now.Add(time.Hour)) {
		t.Fatalf("expires = %v", expires)
	}
	claims, err := issuer.ParseAccess(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != user.RoleOfficial || claims.BarangayID != "brgy-1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestAccessExpires(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)
	raw, _, err := issuer.IssueAccess(user.User{ID: "user-1", Role: user.RoleResident, BarangayID: "brgy-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	clock.now = clock.now.Add(2 * time.Hour)
	if _, err := issuer.ParseAccess(raw); !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestChallengeIsNotAnAccessToken(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)

	challenge, expires, err := issuer.IssueChallenge("user-1")
	if err != nil {
		t.Fatalf("issue challenge: %v", err)
	}
	if !expires.Equal(clock.now.Add(ChallengeTTL)) {
		t.Fatalf("challenge expires = %v", expires)
	}
	if _, err := issuer.ParseAccess(challenge); err == nil {
		t.Fatal("challenge token must not authenticate API calls")
	}
	userID, err := issuer.ParseChallenge(challenge)
	if err != nil || userID != "user-1" {
		t.Fatalf("ParseChallenge = %q, %v", userID, err)
	}

	clock.now = clock.now.Add(ChallengeTTL + time.Second)
	_, err = issuer.ParseChallenge(challenge)
	if apperrors.GetCode(err) != apperrors.CodeMFAChallengeFailed {
		t.Fatalf("err = %v, want MFA challenge failure", err)
	}
}

func TestParseRejectsForeignKeyAndIssuer(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)}
	issuer := newTestIssuer(t, clock)
	other, err := NewIssuer(Config{SigningKey: bytes.Repeat([]byte{1}, 32), Issuer: "baranex-test", Now: clock.Now})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	raw, _, _ := other.IssueAccess(user.User{ID: "user-1", Role: user.RoleAdmin, BarangayID: "brgy-1"})
	if _, err := issuer.ParseAccess(raw); err == nil {
		t.Fatal("expected signature mismatch")
	}

	foreign, err := NewIssuer(Config{SigningKey: bytes.Repeat([]byte{9}, 32), Issuer: "elsewhere", Now: clock.Now})
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	raw, _, _ = foreign.IssueAccess(user.User{ID: "user-1", Role: user.RoleAdmin, BarangayID: "brgy-1"})
	if _, err := issuer.ParseAccess(raw); err == nil {
		t.Fatal("expected issuer mismatch")
	}
	if _, err := issuer.ParseAccess(""); err == nil {
		t.Fatal("expected empty token rejection")
	}
}

func TestNewIssuerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewIssuer(Config{SigningKey: []byte("short"), Issuer: "x"}); err == nil {
		t.Fatal("expected short key error")
	}
	if _, err := NewIssuer(Config{SigningKey: bytes.Repeat([]byte{1}, 32)}); err == nil {
		t.Fatal("expected issuer error")
	}
}
