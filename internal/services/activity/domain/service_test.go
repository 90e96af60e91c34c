package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
)

type fakeStore struct {
	entries []Entry
	queries []Query
	putErr  error
}

func (f *fakeStore) PutEntry(_ context.Context, entry Entry) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeStore) ListEntries(_ context.Context, query Query) (listing.Page[Entry], error) {
	f.queries = append(f.queries, query)
	return listing.Page[Entry]{Items: f.entries}, nil
}

func fixedClock() time.Time { return time.Date(2026, 3, 1, 8, 0, 0, 0, time.FixedZone("PHT", 8*3600)) }

func sequentialIDs(ids ...string) func() (string, error) {
	return func() (string, error) {
		if len(ids) == 0 {
			return "", errors.New("exhausted")
		}
		next := ids[0]
		ids = ids[1:]
		return next, nil
	}
}

func TestRecordStoresEntry(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc := NewService(store, fixedClock, sequentialIDs("act-1"))
	entry, err := svc.Record(context.Background(), RecordInput{
		BarangayID:  " brgy-1 ",
		ActorUserID: "user-1",
		Action:      " resident.create ",
		EntityType:  "resident",
		EntityID:    "res-1",
		Details:     map[string]string{"name": "Ana"},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if entry.ID != "act-1" || entry.BarangayID != "brgy-1" || entry.Action != "resident.create" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.CreatedAt.Location() != time.UTC {
		t.Fatalf("created_at not UTC: %v", entry.CreatedAt)
	}
	if len(store.entries) != 1 {
		t.Fatalf("stored = %d, want 1", len(store.entries))
	}
}

func TestRecordValidates(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeStore{}, fixedClock, sequentialIDs("a"))
	if _, err := svc.Record(context.Background(), RecordInput{BarangayID: "b"}); err != ErrActionRequired {
		t.Fatalf("missing action = %v", err)
	}
	if _, err := svc.Record(context.Background(), RecordInput{Action: "x"}); err != ErrBarangayRequired {
		t.Fatalf("missing barangay = %v", err)
	}
	var nilSvc *Service
	if _, err := nilSvc.Record(context.Background(), RecordInput{}); err != ErrStoreNotConfigured {
		t.Fatalf("nil service = %v", err)
	}
}

func TestListRequiresOfficial(t *testing.T) {
	t.Parallel()

	svc := NewService(&fakeStore{}, fixedClock, nil)
	_, err := svc.List(context.Background(), requestctx.Principal{UserID: "u", Role: "resident", BarangayID: "b1"}, ListInput{})
	if apperrors.GetCode(err) != apperrors.CodePermissionDenied {
		t.Fatalf("code = %v, want permission denied", apperrors.GetCode(err))
	}
}

func TestListScopesBarangay(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	svc := NewService(store, fixedClock, nil)
	ctx := context.Background()

	if _, err := svc.List(ctx, requestctx.Principal{UserID: "u", Role: "official", BarangayID: "b1"}, ListInput{BarangayID: "b2"}); err != nil {
		t.Fatalf("official list: %v", err)
	}
	if _, err := svc.List(ctx, requestctx.Principal{UserID: "s", Role: "superadmin", BarangayID: "b1"}, ListInput{BarangayID: "b2"}); err != nil {
		t.Fatalf("superadmin list: %v", err)
	}
	if _, err := svc.ListMine(ctx, requestctx.Principal{UserID: "u", Role: "resident", BarangayID: "b1"}, ListInput{}); err != nil {
		t.Fatalf("list mine: %v", err)
	}

	if store.queries[0].BarangayID != "b1" {
		t.Fatalf("official scope = %q, want b1", store.queries[0].BarangayID)
	}
	if store.queries[1].BarangayID != "b2" {
		t.Fatalf("superadmin scope = %q, want b2", store.queries[1].BarangayID)
	}
	if store.queries[2].ActorUserID != "u" {
		t.Fatalf("mine actor = %q, want u", store.queries[2].ActorUserID)
	}
}
