package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/baranex/internal/services/auth/storage"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestStoreDBNilSafe(t *testing.T) {
	var store *Store
	if store.DB() != nil {
		t.Fatal("expected nil DB for nil store")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close nil store: %v", err)
	}
}

func TestNewRequiresDB(t *testing.T) {
	if _, err := New(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestPutGetUserRoundTrip(t *testing.T) {
	store := openTempStore(t)

	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	input := testUser("user-1", "ana@example.com", "+639171234567")
	input.CreatedAt = created
	input.UpdatedAt = created.Add(time.Hour)

	if err := store.PutUser(context.Background(), input); err != nil {
		t.Fatalf("put user: %v", err)
	}

	got, err := store.GetUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.ID != input.ID || got.Email != input.Email || got.Phone != input.Phone || got.Role != user.RoleResident {
		t.Fatalf("unexpected user: %+v", got)
	}
	if !got.UpdatedAt.Equal(input.UpdatedAt) {
		t.Fatalf("updated_at = %v, want %v", got.UpdatedAt, input.UpdatedAt)
	}
	if got.Verified() {
		t.Fatal("expected unverified user")
	}

	byEmail, err := store.GetUserByEmail(context.Background(), "ana@example.com")
	if err != nil || byEmail.ID != "user-1" {
		t.Fatalf("get by email = %+v, %v", byEmail, err)
	}
	byPhone, err := store.GetUserByPhone(context.Background(), "+639171234567")
	if err != nil || byPhone.ID != "user-1" {
		t.Fatalf("get by phone = %+v, %v", byPhone, err)
	}
}

func TestPutUserDuplicateEmailConflicts(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutUser(ctx, testUser("user-1", "ana@example.com", "")); err != nil {
		t.Fatalf("put user: %v", err)
	}
	err := store.PutUser(ctx, testUser("user-2", "ana@example.com", ""))
	if err != storage.ErrConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUsersWithoutPhoneDoNotConflict(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutUser(ctx, testUser("user-1", "a@example.com", "")); err != nil {
		t.Fatalf("put user 1: %v", err)
	}
	if err := store.PutUser(ctx, testUser("user-2", "b@example.com", "")); err != nil {
		t.Fatalf("put user 2: %v", err)
	}
}

func TestPutUserRequiresID(t *testing.T) {
	store := openTempStore(t)

	if err := store.PutUser(context.Background(), user.User{ID: "  "}); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestGetUserNotFound(t *testing.T) {
	store := openTempStore(t)

	_, err := store.GetUser(context.Background(), "missing")
	if err != storage.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateAndDeleteUser(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	u := testUser("user-1", "ana@example.com", "")
	if err := store.PutUser(ctx, u); err != nil {
		t.Fatalf("put user: %v", err)
	}
	u.Role = user.RoleOfficial
	u.DisplayName = "Ana Santos"
	if err := store.UpdateUser(ctx, u); err != nil {
		t.Fatalf("update user: %v", err)
	}
	got, err := store.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got.Role != user.RoleOfficial || got.DisplayName != "Ana Santos" {
		t.Fatalf("unexpected user after update: %+v", got)
	}

	if err := store.DeleteUser(ctx, "user-1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if err := store.DeleteUser(ctx, "user-1"); err != storage.ErrNotFound {
		t.Fatalf("second delete = %v, want not found", err)
	}
	if err := store.UpdateUser(ctx, u); err != storage.ErrNotFound {
		t.Fatalf("update missing = %v, want not found", err)
	}
}

func TestListAndCountUsers(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	resident := testUser("user-1", "a@example.com", "")
	official := testUser("user-2", "b@example.com", "")
	official.Role = user.RoleOfficial
	official.CreatedAt = official.CreatedAt.Add(time.Minute)
	other := testUser("user-3", "c@example.com", "")
	other.BarangayID = "brgy-2"
	for _, u := range []user.User{resident, official, other} {
		if err := store.PutUser(ctx, u); err != nil {
			t.Fatalf("put user %s: %v", u.ID, err)
		}
	}

	all, err := store.ListUsers(ctx, "brgy-1")
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(all) != 2 || all[0].ID != "user-1" || all[1].ID != "user-2" {
		t.Fatalf("unexpected users: %+v", all)
	}

	officials, err := store.ListUsers(ctx, "brgy-1", user.RoleOfficial, user.RoleAdmin)
	if err != nil {
		t.Fatalf("list officials: %v", err)
	}
	if len(officials) != 1 || officials[0].ID != "user-2" {
		t.Fatalf("unexpected officials: %+v", officials)
	}

	count, err := store.CountUsers(ctx, "brgy-1")
	if err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestMFAFactorLifecycle(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutUser(ctx, testUser("user-1", "a@example.com", "")); err != nil {
		t.Fatalf("put user: %v", err)
	}
	if _, err := store.GetMFAFactor(ctx, "user-1"); err != storage.ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	enrolled := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	factor := storage.MFAFactor{UserID: "user-1", SealedSecret: "v1.sealed", EnrolledAt: enrolled}
	if err := store.PutMFAFactor(ctx, factor); err != nil {
		t.Fatalf("put factor: %v", err)
	}

	confirmed := enrolled.Add(time.Minute)
	factor.Enabled = true
	factor.ConfirmedAt = &confirmed
	factor.LastUsedStep = 100
	if err := store.PutMFAFactor(ctx, factor); err != nil {
		t.Fatalf("replace factor: %v", err)
	}

	got, err := store.GetMFAFactor(ctx, "user-1")
	if err != nil {
		t.Fatalf("get factor: %v", err)
	}
	if !got.Enabled || got.ConfirmedAt == nil || !got.ConfirmedAt.Equal(confirmed) || got.LastUsedStep != 100 {
		t.Fatalf("unexpected factor: %+v", got)
	}

	ok, err := store.ConsumeMFAStep(ctx, "user-1", 100)
	if err != nil {
		t.Fatalf("consume step: %v", err)
	}
	if ok {
		t.Fatal("expected replayed step to be rejected")
	}
	ok, err = store.ConsumeMFAStep(ctx, "user-1", 101)
	if err != nil || !ok {
		t.Fatalf("consume newer step = %v, %v", ok, err)
	}

	if err := store.DeleteMFAFactor(ctx, "user-1"); err != nil {
		t.Fatalf("delete factor: %v", err)
	}
	if err := store.DeleteMFAFactor(ctx, "user-1"); err != storage.ErrNotFound {
		t.Fatalf("second delete = %v, want not found", err)
	}
}

func TestVerificationTokenLifecycle(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutUser(ctx, testUser("user-1", "a@example.com", "")); err != nil {
		t.Fatalf("put user: %v", err)
	}
	issued := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	for i, hash := range []string{"hash-old", "hash-new"} {
		created := issued.Add(time.Duration(i) * time.Minute)
		if err := store.PutVerificationToken(ctx, storage.VerificationToken{
			TokenHash: hash,
			UserID:    "user-1",
			CreatedAt: created,
			ExpiresAt: created.Add(24 * time.Hour),
		}); err != nil {
			t.Fatalf("put token %s: %v", hash, err)
		}
	}

	latest, err := store.LatestVerificationToken(ctx, "user-1")
	if err != nil {
		t.Fatalf("latest token: %v", err)
	}
	if latest.TokenHash != "hash-new" {
		t.Fatalf("latest = %q, want hash-new", latest.TokenHash)
	}

	usedAt := issued.Add(time.Hour)
	if err := store.UseVerificationToken(ctx, "hash-new", usedAt); err != nil {
		t.Fatalf("use token: %v", err)
	}
	if err := store.UseVerificationToken(ctx, "hash-new", usedAt); err != storage.ErrNotFound {
		t.Fatalf("reuse token = %v, want not found", err)
	}

	got, err := store.GetVerificationToken(ctx, "hash-new")
	if err != nil {
		t.Fatalf("get token: %v", err)
	}
	if got.UsedAt == nil || !got.UsedAt.Equal(usedAt) {
		t.Fatalf("used_at = %v, want %v", got.UsedAt, usedAt)
	}
	u, err := store.GetUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !u.Verified() {
		t.Fatal("expected verified user")
	}
}

func TestDeleteUserCascadesFactors(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	if err := store.PutUser(ctx, testUser("user-1", "a@example.com", "")); err != nil {
		t.Fatalf("put user: %v", err)
	}
	if err := store.PutMFAFactor(ctx, storage.MFAFactor{UserID: "user-1", SealedSecret: "x", EnrolledAt: time.Now()}); err != nil {
		t.Fatalf("put factor: %v", err)
	}
	if err := store.DeleteUser(ctx, "user-1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := store.GetMFAFactor(ctx, "user-1"); err != storage.ErrNotFound {
		t.Fatalf("factor after delete = %v, want not found", err)
	}
}

func TestCanceledContext(t *testing.T) {
	store := openTempStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.GetUser(ctx, "user-1"); err == nil {
		t.Fatal("expected context error")
	}
}

func testUser(id, email, phone string) user.User {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return user.User{
		ID:           id,
		Email:        email,
		Phone:        phone,
		DisplayName:  "User " + id,
		Role:         user.RoleResident,
		BarangayID:   "brgy-1",
		PasswordHash: "hash",
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func openTempStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "auth.db")
	store, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}
