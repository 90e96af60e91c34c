package domain

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/services/realtime"
)

var errIDGeneratorExhausted = errors.New("notification id generator exhausted")

func TestCreateIntent_IdempotentByDedupeKey(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 21, 20, 25, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, fixedClock(now), sequentialIDGenerator("notif-1", "notif-2"))

	input := CreateIntentInput{
		RecipientUserID: "user-1",
		Topic:           TopicEmergencyStatus,
		Payload:         map[string]string{"status": "acknowledged"},
		DedupeKey:       "emergency:em-1:acknowledged",
		Source:          "emergency",
	}
	first, err := svc.CreateIntent(context.Background(), input)
	if err != nil {
		t.Fatalf("create first intent: %v", err)
	}
	second, err := svc.CreateIntent(context.Background(), input)
	if err != nil {
		t.Fatalf("create second intent: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("expected dedupe create to return existing notification id %q, got %q", first.ID, second.ID)
	}
	if got := store.notificationCount(); got != 1 {
		t.Fatalf("expected one persisted notification, got %d", got)
	}
	if first.PayloadJSON != `{"status":"acknowledged"}` {
		t.Fatalf("payload = %q", first.PayloadJSON)
	}
}

func TestCreateIntent_ValidatesInput(t *testing.T) {
	t.Parallel()

	svc := NewService(newFakeStore(), fixedClock(time.Now()), sequentialIDGenerator("n"))
	tests := []struct {
		name  string
		input CreateIntentInput
		want  error
	}{
		{"missing recipient", CreateIntentInput{Topic: "x"}, ErrRecipientUserIDRequired},
		{"missing topic", CreateIntentInput{RecipientUserID: "u"}, ErrTopicRequired},
		{"array payload", CreateIntentInput{RecipientUserID: "u", Topic: "x", Payload: []int{1}}, ErrInvalidPayload},
		{"bad json payload", CreateIntentInput{RecipientUserID: "u", Topic: "x", Payload: "{"}, ErrInvalidPayload},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateIntent(context.Background(), tc.input)
			if err == nil || err.Error() != tc.want.Error() {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCreateIntent_PublishesToRecipient(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub()
	defer hub.Close()
	mine := hub.Subscribe(realtime.Filter{UserID: "user-1", BarangayID: "brgy-1"})
	defer mine.Close()
	other := hub.Subscribe(realtime.Filter{UserID: "user-2", BarangayID: "brgy-1"})
	defer other.Close()

	svc := NewService(newFakeStore(), fixedClock(time.Now()), sequentialIDGenerator("notif-1")).WithPublisher(hub)
	if _, err := svc.CreateIntent(context.Background(), CreateIntentInput{
		RecipientUserID: "user-1",
		BarangayID:      "brgy-1",
		Topic:           TopicRoleChanged,
	}); err != nil {
		t.Fatalf("create intent: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	change, err := mine.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if change.Table != Table || change.Type != realtime.Insert || change.RecipientUserID != "user-1" {
		t.Fatalf("unexpected change: %+v", change)
	}
	short, cancelShort := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelShort()
	if _, err := other.Next(short); err == nil {
		t.Fatal("other user received a notification change")
	}
}

func TestListInbox_FiltersRecipientAndPaginatesNewestFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 2, 21, 20, 30, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, fixedClock(base), sequentialIDGenerator("notif-1", "notif-2", "notif-3", "notif-4"))

	createAt := func(at time.Time, recipient string, dedupe string) {
		t.Helper()
		svc.clock = fixedClock(at)
		if _, err := svc.CreateIntent(context.Background(), CreateIntentInput{
			RecipientUserID: recipient,
			Topic:           TopicDocumentStatus,
			Payload:         `{"status":"ready"}`,
			DedupeKey:       dedupe,
			Source:          "registry",
		}); err != nil {
			t.Fatalf("create intent at %s: %v", at, err)
		}
	}

	createAt(base.Add(1*time.Minute), "user-1", "a")
	createAt(base.Add(2*time.Minute), "user-2", "x")
	createAt(base.Add(3*time.Minute), "user-1", "b")
	createAt(base.Add(4*time.Minute), "user-1", "c")

	pageOne, err := svc.ListInbox(context.Background(), ListInboxInput{
		RecipientUserID: "user-1",
		PageSize:        2,
	})
	if err != nil {
		t.Fatalf("list page one: %v", err)
	}
	if got := len(pageOne.Items); got != 2 {
		t.Fatalf("page one notifications = %d, want 2", got)
	}
	if pageOne.Items[0].DedupeKey != "c" || pageOne.Items[1].DedupeKey != "b" {
		t.Fatalf("unexpected page one order: %+v", pageOne.Items)
	}
	if pageOne.NextPageToken == "" {
		t.Fatal("expected non-empty next page token")
	}

	pageTwo, err := svc.ListInbox(context.Background(), ListInboxInput{
		RecipientUserID: "user-1",
		PageSize:        2,
		PageToken:       pageOne.NextPageToken,
	})
	if err != nil {
		t.Fatalf("list page two: %v", err)
	}
	if got := len(pageTwo.Items); got != 1 {
		t.Fatalf("page two notifications = %d, want 1", got)
	}
	if pageTwo.Items[0].DedupeKey != "a" {
		t.Fatalf("unexpected page two notification dedupe key: %q", pageTwo.Items[0].DedupeKey)
	}
}

func TestMarkRead_PersistsReadTimestamp(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 21, 20, 45, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, fixedClock(now), sequentialIDGenerator("notif-1"))

	created, err := svc.CreateIntent(context.Background(), CreateIntentInput{
		RecipientUserID: "user-1",
		Topic:           TopicSecurityLogin,
	})
	if err != nil {
		t.Fatalf("create intent: %v", err)
	}

	readAt := now.Add(5 * time.Minute)
	svc.clock = fixedClock(readAt)
	read, err := svc.MarkRead(context.Background(), MarkReadInput{
		RecipientUserID: "user-1",
		NotificationID:  created.ID,
	})
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if read.ReadAt == nil || !read.ReadAt.Equal(readAt) {
		t.Fatalf("read_at = %v, want %v", read.ReadAt, readAt)
	}

	if _, err := svc.MarkRead(context.Background(), MarkReadInput{RecipientUserID: "user-2", NotificationID: created.ID}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other recipient mark read = %v, want not found", err)
	}
}

func TestUnreadCountAndMarkAllRead(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 21, 20, 47, 0, 0, time.UTC)
	store := newFakeStore()
	svc := NewService(store, fixedClock(now), sequentialIDGenerator("notif-1", "notif-2", "notif-3"))

	first, err := svc.CreateIntent(context.Background(), CreateIntentInput{RecipientUserID: "user-1", Topic: TopicSecurityLogin, DedupeKey: "login:1"})
	if err != nil {
		t.Fatalf("create first intent: %v", err)
	}
	for _, key := range []string{"login:2", "login:3"} {
		if _, err := svc.CreateIntent(context.Background(), CreateIntentInput{RecipientUserID: "user-1", Topic: TopicSecurityLogin, DedupeKey: key}); err != nil {
			t.Fatalf("create intent %s: %v", key, err)
		}
	}
	if _, err := svc.MarkRead(context.Background(), MarkReadInput{RecipientUserID: "user-1", NotificationID: first.ID}); err != nil {
		t.Fatalf("mark first read: %v", err)
	}

	count, err := svc.UnreadCount(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unread count: %v", err)
	}
	if count != 2 {
		t.Fatalf("unread = %d, want 2", count)
	}

	updated, err := svc.MarkAllRead(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if updated != 2 {
		t.Fatalf("updated = %d, want 2", updated)
	}
	if count, _ := svc.UnreadCount(context.Background(), "user-1"); count != 0 {
		t.Fatalf("unread after mark all = %d, want 0", count)
	}
	if _, err := svc.UnreadCount(context.Background(), " "); err != ErrRecipientUserIDRequired {
		t.Fatalf("blank recipient = %v", err)
	}
}

func TestCreateIntent_ConcurrentDedupeReturnsSingleNotification(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 21, 20, 50, 0, 0, time.UTC)
	store := newConcurrentConflictStore()
	svc := NewService(store, fixedClock(now), lockedSequentialIDGenerator("notif-1", "notif-2"))

	type createResult struct {
		notification Notification
		err          error
	}
	results := make(chan createResult, 2)
	input := CreateIntentInput{
		RecipientUserID: "user-1",
		Topic:           TopicEmergencyCreated,
		Payload:         `{"emergency_id":"em-1"}`,
		DedupeKey:       "emergency:em-1",
		Source:          "emergency",
	}

	var wg sync.WaitGroup
	wg.Add(2)
	for range 2 {
		go func() {
			defer wg.Done()
			notification, err := svc.CreateIntent(context.Background(), input)
			results <- createResult{notification: notification, err: err}
		}()
	}
	wg.Wait()
	close(results)

	var ids []string
	for result := range results {
		if result.err != nil {
			t.Fatalf("expected idempotent create under race, got error: %v", result.err)
		}
		ids = append(ids, result.notification.ID)
	}
	if len(ids) != 2 {
		t.Fatalf("results = %d, want 2", len(ids))
	}
	if ids[0] != ids[1] {
		t.Fatalf("expected same notification id from concurrent dedupe calls, got %q and %q", ids[0], ids[1])
	}
	if got := store.notificationCount(); got != 1 {
		t.Fatalf("expected one persisted notification, got %d", got)
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sequentialIDGenerator(ids ...string) func() (string, error) {
	queue := append([]string(nil), ids...)
	index := 0
	return func() (string, error) {
		if index >= len(queue) {
			return "", errIDGeneratorExhausted
		}
		value := queue[index]
		index++
		return value, nil
	}
}

func lockedSequentialIDGenerator(ids ...string) func() (string, error) {
	next := sequentialIDGenerator(ids...)
	var mu sync.Mutex
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		return next()
	}
}

type fakeStore struct {
	mu            sync.Mutex
	notifications map[string]Notification
	dedupeIndex   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		notifications: make(map[string]Notification),
		dedupeIndex:   make(map[string]string),
	}
}

func (s *fakeStore) notificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

func (s *fakeStore) GetNotificationByRecipientAndDedupeKey(_ context.Context, recipientUserID string, dedupeKey string) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notificationID, ok := s.dedupeIndex[dedupeKeyIndexKey(recipientUserID, dedupeKey)]
	if !ok {
		return Notification{}, ErrNotFound
	}
	notification, ok := s.notifications[notificationID]
	if !ok {
		return Notification{}, ErrNotFound
	}
	return notification, nil
}

func (s *fakeStore) PutNotification(_ context.Context, notification Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(notification.ID) == "" {
		return errors.New("notification id is required")
	}
	key := dedupeKeyIndexKey(notification.RecipientUserID, notification.DedupeKey)
	if notification.DedupeKey != "" {
		if existingID, ok := s.dedupeIndex[key]; ok && existingID != notification.ID {
			return ErrConflict
		}
		s.dedupeIndex[key] = notification.ID
	}
	s.notifications[notification.ID] = notification
	return nil
}

// ListNotificationsByRecipient pages with the last served ID as the token.
func (s *fakeStore) ListNotificationsByRecipient(_ context.Context, input ListInboxInput) (listing.Page[Notification], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	filtered := make([]Notification, 0, len(s.notifications))
	for _, notification := range s.notifications {
		if notification.RecipientUserID == input.RecipientUserID {
			filtered = append(filtered, notification)
		}
	}
	sort.Slice(filtered, func(i int, j int) bool {
		if filtered[i].CreatedAt.Equal(filtered[j].CreatedAt) {
			return filtered[i].ID > filtered[j].ID
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	start := 0
	if input.PageToken != "" {
		for idx := range filtered {
			if filtered[idx].ID == input.PageToken {
				start = idx + 1
				break
			}
		}
	}
	if start >= len(filtered) {
		return listing.Page[Notification]{}, nil
	}
	end := min(start+input.PageSize, len(filtered))
	page := listing.Page[Notification]{Items: append([]Notification(nil), filtered[start:end]...)}
	if end < len(filtered) {
		page.NextPageToken = filtered[end-1].ID
	}
	return page, nil
}

func (s *fakeStore) CountUnreadNotificationsByRecipient(_ context.Context, recipientUserID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unreadCount := 0
	for _, notification := range s.notifications {
		if notification.RecipientUserID == recipientUserID && notification.ReadAt == nil {
			unreadCount++
		}
	}
	return unreadCount, nil
}

func (s *fakeStore) MarkNotificationRead(_ context.Context, recipientUserID string, notificationID string, readAt time.Time) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	notification, ok := s.notifications[notificationID]
	if !ok || notification.RecipientUserID != recipientUserID {
		return Notification{}, ErrNotFound
	}
	value := readAt.UTC()
	notification.ReadAt = &value
	notification.UpdatedAt = value
	s.notifications[notification.ID] = notification
	return notification, nil
}

func (s *fakeStore) MarkAllNotificationsRead(_ context.Context, recipientUserID string, readAt time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := 0
	for id, notification := range s.notifications {
		if notification.RecipientUserID != recipientUserID || notification.ReadAt != nil {
			continue
		}
		value := readAt.UTC()
		notification.ReadAt = &value
		s.notifications[id] = notification
		updated++
	}
	return updated, nil
}

// concurrentConflictStore holds both dedupe lookups until both callers have
// missed, forcing the conflict path.
type concurrentConflictStore struct {
	*fakeStore
	gate        sync.Mutex
	releaseGets chan struct{}
	getCalls    int
}

func newConcurrentConflictStore() *concurrentConflictStore {
	return &concurrentConflictStore{
		fakeStore:   newFakeStore(),
		releaseGets: make(chan struct{}),
	}
}

func (s *concurrentConflictStore) GetNotificationByRecipientAndDedupeKey(ctx context.Context, recipientUserID string, dedupeKey string) (Notification, error) {
	s.gate.Lock()
	s.getCalls++
	callIndex := s.getCalls
	if s.getCalls == 2 {
		close(s.releaseGets)
	}
	release := s.releaseGets
	s.gate.Unlock()

	<-release
	if callIndex <= 2 {
		return Notification{}, ErrNotFound
	}
	return s.fakeStore.GetNotificationByRecipientAndDedupeKey(ctx, recipientUserID, dedupeKey)
}

func dedupeKeyIndexKey(recipientUserID string, dedupeKey string) string {
	return strings.TrimSpace(recipientUserID) + "|" + strings.TrimSpace(dedupeKey)
}
