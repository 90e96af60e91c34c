// Package domain holds notification inbox use-cases.
package domain

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/id"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/services/realtime"
)

// Table is the realtime table name for inbox changes.
const Table = "notifications"

var (
	// ErrNotFound indicates a notification record was not found.
	ErrNotFound = apperrors.NotFound("notification not found")
	// ErrConflict indicates a write conflicted with existing uniqueness constraints.
	ErrConflict = apperrors.New(apperrors.CodeConflict, "notification conflict")
	// ErrStoreNotConfigured indicates the service is missing persistence wiring.
	ErrStoreNotConfigured = errors.New("notification store is not configured")
	// ErrRecipientUserIDRequired indicates recipient identity is required.
	ErrRecipientUserIDRequired = apperrors.InvalidArgument("recipient user id is required")
	// ErrTopicRequired indicates a topic is required.
	ErrTopicRequired = apperrors.InvalidArgument("notification topic is required")
	// ErrNotificationIDRequired indicates notification ID is required.
	ErrNotificationIDRequired = apperrors.InvalidArgument("notification id is required")
	// ErrInvalidPayload indicates the payload is not a JSON object.
	ErrInvalidPayload = apperrors.InvalidArgument("notification payload must be a JSON object")
)

// Notification captures one user-targeted notification item.
type Notification struct {
	ID              string     `json:"id"`
	RecipientUserID string     `json:"recipient_user_id"`
	BarangayID      string     `json:"barangay_id,omitempty"`
	Topic           string     `json:"topic"`
	PayloadJSON     string     `json:"-"`
	DedupeKey       string     `json:"-"`
	Source          string     `json:"source,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
}

// Payload returns the stored payload as raw JSON.
func (n Notification) Payload() json.RawMessage {
	if strings.TrimSpace(n.PayloadJSON) == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(n.PayloadJSON)
}

// CreateIntentInput describes one producer notification request.
type CreateIntentInput struct {
	RecipientUserID string
	BarangayID      string
	Topic           string
	// Payload is encoded as the notification's JSON payload.
	Payload   any
	DedupeKey string
	Source    string
}

// ListInboxInput configures recipient inbox listing.
type ListInboxInput struct {
	RecipientUserID string
	Filter          string
	PageSize        int
	PageToken       string
}

// MarkReadInput identifies one recipient notification to acknowledge.
type MarkReadInput struct {
	RecipientUserID string
	NotificationID  string
}

// Store is the domain persistence boundary for notification lifecycle behavior.
type Store interface {
	GetNotificationByRecipientAndDedupeKey(ctx context.Context, recipientUserID string, dedupeKey string) (Notification, error)
	PutNotification(ctx context.Context, notification Notification) error
	ListNotificationsByRecipient(ctx context.Context, input ListInboxInput) (listing.Page[Notification], error)
	CountUnreadNotificationsByRecipient(ctx context.Context, recipientUserID string) (int, error)
	MarkNotificationRead(ctx context.Context, recipientUserID string, notificationID string, readAt time.Time) (Notification, error)
	MarkAllNotificationsRead(ctx context.Context, recipientUserID string, readAt time.Time) (int, error)
}

// Publisher receives committed inbox changes.
type Publisher interface {
	Publish(change realtime.Change)
}

// Service orchestrates recipient inbox lifecycle behavior.
type Service struct {
	store     Store
	clock     func() time.Time
	newID     func() (string, error)
	publisher Publisher
}

// NewService constructs notification domain use-cases.
func NewService(store Store, clock func() time.Time, newID func() (string, error)) *Service {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Service{
		store: store,
		clock: clock,
		newID: newID,
	}
}

// WithPublisher sets the realtime publisher and returns s.
func (s *Service) WithPublisher(publisher Publisher) *Service {
	s.publisher = publisher
	return s
}

// CreateIntent stores one notification item and de-duplicates by recipient+dedupe key.
func (s *Service) CreateIntent(ctx context.Context, input CreateIntentInput) (Notification, error) {
	if s == nil || s.store == nil {
		return Notification{}, ErrStoreNotConfigured
	}
	recipientUserID := strings.TrimSpace(input.RecipientUserID)
	if recipientUserID == "" {
		return Notification{}, ErrRecipientUserIDRequired
	}
	topic := NormalizeTopic(input.Topic)
	if topic == "" {
		return Notification{}, ErrTopicRequired
	}
	payload, err := encodePayload(input.Payload)
	if err != nil {
		return Notification{}, err
	}
	dedupeKey := strings.TrimSpace(input.DedupeKey)
	if dedupeKey != "" {
		existing, err := s.store.GetNotificationByRecipientAndDedupeKey(ctx, recipientUserID, dedupeKey)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Notification{}, err
		}
	}

	notificationID, err := s.newID()
	if err != nil {
		return Notification{}, err
	}
	now := s.nowUTC()
	notification := Notification{
		ID:              notificationID,
		RecipientUserID: recipientUserID,
		BarangayID:      strings.TrimSpace(input.BarangayID),
		Topic:           topic,
		PayloadJSON:     payload,
		DedupeKey:       dedupeKey,
		Source:          strings.TrimSpace(input.Source),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.PutNotification(ctx, notification); err != nil {
		if dedupeKey != "" && errors.Is(err, ErrConflict) {
			existing, lookupErr := s.store.GetNotificationByRecipientAndDedupeKey(ctx, recipientUserID, dedupeKey)
			if lookupErr == nil {
				return existing, nil
			}
			if errors.Is(lookupErr, ErrNotFound) {
				return Notification{}, err
			}
			return Notification{}, lookupErr
		}
		return Notification{}, err
	}
	s.publish(realtime.Insert, notification)
	return notification, nil
}

// ListInbox lists recipient inbox notifications newest first.
func (s *Service) ListInbox(ctx context.Context, input ListInboxInput) (listing.Page[Notification], error) {
	if s == nil || s.store == nil {
		return listing.Page[Notification]{}, ErrStoreNotConfigured
	}
	input.RecipientUserID = strings.TrimSpace(input.RecipientUserID)
	if input.RecipientUserID == "" {
		return listing.Page[Notification]{}, ErrRecipientUserIDRequired
	}
	input.PageToken = strings.TrimSpace(input.PageToken)
	return s.store.ListNotificationsByRecipient(ctx, input)
}

// UnreadCount counts the recipient's unread notifications.
func (s *Service) UnreadCount(ctx context.Context, recipientUserID string) (int, error) {
	if s == nil || s.store == nil {
		return 0, ErrStoreNotConfigured
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	if recipientUserID == "" {
		return 0, ErrRecipientUserIDRequired
	}
	return s.store.CountUnreadNotificationsByRecipient(ctx, recipientUserID)
}

// MarkRead marks one recipient notification as read.
func (s *Service) MarkRead(ctx context.Context, input MarkReadInput) (Notification, error) {
	if s == nil || s.store == nil {
		return Notification{}, ErrStoreNotConfigured
	}
	recipientUserID := strings.TrimSpace(input.RecipientUserID)
	if recipientUserID == "" {
		return Notification{}, ErrRecipientUserIDRequired
	}
	notificationID := strings.TrimSpace(input.NotificationID)
	if notificationID == "" {
		return Notification{}, ErrNotificationIDRequired
	}
	notification, err := s.store.MarkNotificationRead(ctx, recipientUserID, notificationID, s.nowUTC())
	if err != nil {
		return Notification{}, err
	}
	s.publish(realtime.Update, notification)
	return notification, nil
}

// MarkAllRead marks every unread notification of the recipient as read and
// returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context, recipientUserID string) (int, error) {
	if s == nil || s.store == nil {
		return 0, ErrStoreNotConfigured
	}
	recipientUserID = strings.TrimSpace(recipientUserID)
	if recipientUserID == "" {
		return 0, ErrRecipientUserIDRequired
	}
	updated, err := s.store.MarkAllNotificationsRead(ctx, recipientUserID, s.nowUTC())
	if err != nil {
		return 0, err
	}
	if updated > 0 && s.publisher != nil {
		change := realtime.NewChange(Table, realtime.Update, "", map[string]any{"read_all": true, "updated": updated})
		change.RecipientUserID = recipientUserID
		s.publisher.Publish(change)
	}
	return updated, nil
}

func (s *Service) publish(kind realtime.ChangeType, n Notification) {
	if s.publisher == nil {
		return
	}
	change := realtime.NewChange(Table, kind, n.BarangayID, n)
	change.RecipientUserID = n.RecipientUserID
	s.publisher.Publish(change)
}

func encodePayload(payload any) (string, error) {
	switch value := payload.(type) {
	case nil:
		return "", nil
	case string:
		value = strings.TrimSpace(value)
		if value == "" {
			return "", nil
		}
		var probe map[string]any
		if err := json.Unmarshal([]byte(value), &probe); err != nil {
			return "", ErrInvalidPayload
		}
		return value, nil
	default:
		data, err := json.Marshal(value)
		if err != nil || len(data) == 0 || data[0] != '{' {
			return "", ErrInvalidPayload
		}
		return string(data), nil
	}
}

func (s *Service) nowUTC() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
