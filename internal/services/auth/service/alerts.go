package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	activitydomain "github.com/louisbranch/baranex/internal/services/activity/domain"
	notifydomain "github.com/louisbranch/baranex/internal/services/notifications/domain"
)

// LoginAlert describes the client that signed in.
type LoginAlert struct {
	UserAgent string `json:"user_agent"`
	IP        string `json:"ip"`
	Platform  string `json:"platform"`
}

// RecordLoginAlert logs a sign-in and tells the user about it. Repeated alerts
// within the same hour collapse into one notification.
func (s *Service) RecordLoginAlert(ctx context.Context, userID string, alert LoginAlert) error {
	if err := s.ready(); err != nil {
		return err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	details := map[string]string{
		"user_agent": truncate(alert.UserAgent, 256),
		"ip":         truncate(alert.IP, 64),
		"platform":   truncate(alert.Platform, 64),
	}
	s.record(ctx, activitydomain.RecordInput{
		BarangayID:  u.BarangayID,
		ActorUserID: u.ID,
		Action:      "auth.login",
		EntityType:  "user",
		EntityID:    u.ID,
		Details:     details,
	})
	s.notify(ctx, notifydomain.CreateIntentInput{
		RecipientUserID: u.ID,
		BarangayID:      u.BarangayID,
		Topic:           notifydomain.TopicSecurityLogin,
		Payload:         details,
		DedupeKey:       fmt.Sprintf("%s:%s:%d", notifydomain.TopicSecurityLogin, u.ID, s.now().Unix()/3600),
		Source:          "auth",
	})
	return nil
}

// truncate keeps at most max runes of value, dropping invalid UTF-8.
func truncate(value string, max int) string {
	value = strings.ToValidUTF8(strings.TrimSpace(value), "")
	if utf8.RuneCountInString(value) <= max {
		return value
	}
	return string([]rune(value)[:max])
}
