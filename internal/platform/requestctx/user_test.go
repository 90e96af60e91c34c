package requestctx

import (
	"context"
	"testing"
)

func TestPrincipalRoundTrip(t *testing.T) {
	want := Principal{UserID: "user-42", Role: "official", BarangayID: "brgy-1"}
	ctx := WithPrincipal(context.Background(), want)
	got, ok := PrincipalFromContext(ctx)
	if !ok {
		t.Fatal("expected principal")
	}
	if got != want {
		t.Fatalf("PrincipalFromContext = %+v, want %+v", got, want)
	}
	if id := UserIDFromContext(ctx); id != "user-42" {
		t.Fatalf("UserIDFromContext = %q, want %q", id, "user-42")
	}
}

func TestPrincipalFromContextEmpty(t *testing.T) {
	if _, ok := PrincipalFromContext(context.Background()); ok {
		t.Fatal("expected no principal")
	}
	if _, ok := PrincipalFromContext(nil); ok {
		t.Fatal("expected no principal for nil context")
	}
}

func TestWithPrincipalIgnoresBlankUser(t *testing.T) {
	ctx := WithPrincipal(nil, Principal{Role: "resident"})
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}
	if _, ok := PrincipalFromContext(ctx); ok {
		t.Fatal("expected blank user to be rejected")
	}
}
