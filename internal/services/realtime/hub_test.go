package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

func TestFilterMatches(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter Filter
		change Change
		want   bool
	}{
		{"same barangay", Filter{BarangayID: "b1"}, Change{Table: "residents", BarangayID: "b1"}, true},
		{"other barangay", Filter{BarangayID: "b1"}, Change{Table: "residents", BarangayID: "b2"}, false},
		{"all barangays", Filter{}, Change{Table: "residents", BarangayID: "b2"}, true},
		{"table excluded", Filter{Tables: map[string]bool{"documents": true}}, Change{Table: "residents"}, false},
		{"table included", Filter{Tables: map[string]bool{"residents": true}}, Change{Table: "residents"}, true},
		{"addressed to me", Filter{UserID: "u1", BarangayID: "b1"}, Change{Table: "notifications", BarangayID: "b1", RecipientUserID: "u1"}, true},
		{"addressed to other", Filter{UserID: "u1", BarangayID: "b1"}, Change{Table: "notifications", BarangayID: "b1", RecipientUserID: "u2"}, false},
		{"addressed without user", Filter{}, Change{Table: "notifications", RecipientUserID: "u2"}, false},
		{"official table to resident", Filter{UserID: "u1", Role: "resident"}, Change{Table: "watchlist", MinRole: "official"}, false},
		{"official table to official", Filter{UserID: "u1", Role: "official"}, Change{Table: "watchlist", MinRole: "official"}, true},
		{"official table to admin", Filter{UserID: "u1", Role: "admin"}, Change{Table: "watchlist", MinRole: "official"}, true},
		{"owned record to owner", Filter{UserID: "u1", Role: "resident"}, Change{Table: "documents", MinRole: "official", OwnerUserID: "u1"}, true},
		{"owned record to other resident", Filter{UserID: "u2", Role: "resident"}, Change{Table: "documents", MinRole: "official", OwnerUserID: "u1"}, false},
		{"unknown role", Filter{UserID: "u1", Role: "guest"}, Change{Table: "incidents", MinRole: "official"}, false},
		{"in-process subscriber", Filter{}, Change{Table: "incidents", MinRole: "official"}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(tc.change); got != tc.want {
				t.Fatalf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestParseTables(t *testing.T) {
	got := ParseTables(" residents, ,documents ")
	if len(got) != 2 || !got["residents"] || !got["documents"] {
		t.Fatalf("ParseTables = %v", got)
	}
}

func TestPublishStampsAndDelivers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	hub := NewHub(WithClock(func() time.Time { return now }))
	defer hub.Close()
	sub := hub.Subscribe(Filter{BarangayID: "b1"})
	defer sub.Close()

	hub.Publish(NewChange("residents", Insert, "b1", map[string]string{"id": "r1"}))
	hub.Publish(NewChange("residents", Insert, "b2", nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := sub.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if got.ID == "" || !got.At.Equal(now) || string(got.Record) != `{"id":"r1"}` {
		t.Fatalf("unexpected change: %+v", got)
	}

	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	if _, err := sub.Next(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("next = %v, want deadline exceeded", err)
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	t.Parallel()

	var drops int
	hub := NewHub(WithBuffer(2), WithDropHook(func() { drops++ }))
	defer hub.Close()
	sub := hub.Subscribe(Filter{})
	defer sub.Close()

	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		hub.Publish(Change{ID: id, Table: "residents"})
	}

	if sub.Dropped() != 2 || drops != 2 {
		t.Fatalf("dropped = %d (hook %d), want 2", sub.Dropped(), drops)
	}
	ctx := context.Background()
	for _, want := range []string{"c3", "c4"} {
		got, err := sub.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got.ID != want {
			t.Fatalf("change = %q, want %q", got.ID, want)
		}
	}
}

func TestNextWakesOnPublish(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	defer hub.Close()
	sub := hub.Subscribe(Filter{})
	defer sub.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	var got Change
	var err error
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		got, err = sub.Next(ctx)
	}()
	time.Sleep(10 * time.Millisecond)
	hub.Publish(Change{ID: "c1", Table: "residents"})
	wg.Wait()

	if err != nil || got.ID != "c1" {
		t.Fatalf("next = %+v, %v", got, err)
	}
}

func TestCloseReleasesSubscribers(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	sub := hub.Subscribe(Filter{})
	done := make(chan error, 1)
	go func() {
		_, err := sub.Next(context.Background())
		done <- err
	}()

	hub.Close()
	select {
	case err := <-done:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("next = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber not released")
	}
	if hub.Subscribers() != 0 {
		t.Fatalf("subscribers = %d, want 0", hub.Subscribers())
	}

	late := hub.Subscribe(Filter{})
	if _, err := late.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("late subscribe next = %v, want ErrClosed", err)
	}
	hub.Publish(Change{Table: "residents"})
}

func TestSubscriptionCloseUnregisters(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	defer hub.Close()
	sub := hub.Subscribe(Filter{})
	sub.Close()
	sub.Close()
	if hub.Subscribers() != 0 {
		t.Fatalf("subscribers = %d, want 0", hub.Subscribers())
	}
}

func TestExportersSeeLocalPublishesOnly(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	defer hub.Close()
	var exported []string
	hub.AddExporter(func(c Change) { exported = append(exported, c.ID) })

	hub.Publish(Change{ID: "local", Table: "residents"})
	hub.Inject(Change{ID: "remote", Table: "residents"})

	if len(exported) != 1 || exported[0] != "local" {
		t.Fatalf("exported = %v, want [local]", exported)
	}
}

func TestNilHubPublishIsNoop(t *testing.T) {
	var hub *Hub
	hub.Publish(Change{Table: "residents"})
	hub.Inject(Change{Table: "residents"})
}
