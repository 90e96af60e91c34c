package service

import (
	"context"
	"fmt"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	activitydomain "github.com/louisbranch/baranex/internal/services/activity/domain"
	"github.com/louisbranch/baranex/internal/services/emergency/domain"
	"github.com/louisbranch/baranex/internal/services/sms"
)

// AlertResult is a recorded broadcast and its per-number outcome.
type AlertResult struct {
	Alert      domain.Alert   `json:"alert"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Deliveries []sms.Delivery `json:"deliveries"`
}

// BroadcastAlert sends an SMS to an audience of the caller's barangay and
// records the outcome. Individual delivery failures do not fail the call.
func (s *Service) BroadcastAlert(ctx context.Context, caller requestctx.Principal, in domain.AlertInput) (AlertResult, error) {
	if err := s.ready(); err != nil {
		return AlertResult{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return AlertResult{}, err
	}
	if s.sms == nil {
		return AlertResult{}, apperrors.New(apperrors.CodeUnavailable, "sms gateway is not configured")
	}
	if err := sms.ValidateMessage(in.Message); err != nil {
		return AlertResult{}, err
	}
	audience, err := domain.ParseAudience(in.Audience, in.Numbers)
	if err != nil {
		return AlertResult{}, err
	}
	barangayID := scope(caller, in.BarangayID)
	numbers, err := s.audienceNumbers(ctx, barangayID, audience, in.Numbers)
	if err != nil {
		return AlertResult{}, err
	}
	if len(numbers) == 0 {
		return AlertResult{}, errNoRecipients
	}

	result, err := s.sms.Broadcast(ctx, numbers, in.Message)
	if err != nil {
		return AlertResult{}, err
	}

	alertID, err := s.newID()
	if err != nil {
		return AlertResult{}, fmt.Errorf("generate alert id: %w", err)
	}
	alert := domain.Alert{
		ID:         alertID,
		BarangayID: barangayID,
		SentBy:     caller.UserID,
		Message:    in.Message,
		Audience:   audience,
		Recipients: len(result.Deliveries),
		Sent:       result.Sent,
		Failed:     result.Failed,
		CreatedAt:  s.now(),
	}
	if err := s.store.PutAlert(ctx, alert); err != nil {
		return AlertResult{}, err
	}
	s.record(ctx, activitydomain.RecordInput{
		BarangayID:  barangayID,
		ActorUserID: caller.UserID,
		Action:      "sms.broadcast",
		EntityType:  "sms_alert",
		EntityID:    alert.ID,
		Details: map[string]string{
			"audience": string(audience),
			"sent":     fmt.Sprint(result.Sent),
			"failed":   fmt.Sprint(result.Failed),
		},
	})
	return AlertResult{Alert: alert, Sent: result.Sent, Failed: result.Failed, Deliveries: result.Deliveries}, nil
}

func (s *Service) audienceNumbers(ctx context.Context, barangayID string, audience domain.Audience, explicit []string) ([]string, error) {
	switch audience {
	case domain.AudienceNumbers:
		return explicit, nil
	case domain.AudienceResidents, domain.AudienceOfficials:
		if s.phones == nil {
			return nil, apperrors.New(apperrors.CodeUnavailable, "phone directory is not configured")
		}
		if audience == domain.AudienceOfficials {
			return s.phones.OfficialPhones(ctx, barangayID)
		}
		return s.phones.ResidentPhones(ctx, barangayID)
	default:
		return nil, apperrors.InvalidArgument("unknown audience")
	}
}

// ListAlerts pages through the barangay's past broadcasts.
func (s *Service) ListAlerts(ctx context.Context, caller requestctx.Principal, q domain.ListQuery) (listing.Page[domain.Alert], error) {
	if err := s.ready(); err != nil {
		return listing.Page[domain.Alert]{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return listing.Page[domain.Alert]{}, err
	}
	q.BarangayID = scope(caller, q.BarangayID)
	return s.store.ListAlerts(ctx, q)
}
