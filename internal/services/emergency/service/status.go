package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/louisbranch/baranex/internal/platform/requestctx"
	activitydomain "github.com/louisbranch/baranex/internal/services/activity/domain"
	"github.com/louisbranch/baranex/internal/services/auth/user"
	"github.com/louisbranch/baranex/internal/services/emergency/domain"
	notifydomain "github.com/louisbranch/baranex/internal/services/notifications/domain"
	"github.com/louisbranch/baranex/internal/services/realtime"
)

// UpdateStatus moves a request along its response lifecycle. Officials
// drive every step; the requester may also cancel.
func (s *Service) UpdateStatus(ctx context.Context, caller requestctx.Principal, requestID string, in domain.StatusInput) (domain.Request, error) {
	if err := s.ready(); err != nil {
		return domain.Request{}, err
	}
	if err := requireUser(caller); err != nil {
		return domain.Request{}, err
	}
	to, err := domain.ParseStatus(string(in.Status))
	if err != nil {
		return domain.Request{}, err
	}
	current, err := s.GetRequest(ctx, caller, requestID)
	if err != nil {
		return domain.Request{}, err
	}
	// GetRequest already hides other residents' requests.
	if !isOfficial(caller) && to != domain.StatusCancelled {
		return domain.Request{}, ErrOfficialsOnly
	}
	responder := ""
	if isOfficial(caller) {
		responder = caller.UserID
	}
	next, err := domain.ApplyStatus(current, to, responder, s.now())
	if err != nil {
		return domain.Request{}, err
	}
	if next.Status == current.Status {
		return current, nil
	}
	if err := s.store.UpdateRequest(ctx, next); err != nil {
		return domain.Request{}, err
	}
	s.invalidate(ctx, next.BarangayID)
	s.mutated(ctx, caller, realtime.Update, next, "emergency."+string(next.Status))
	if next.RequesterUserID != caller.UserID {
		s.notify(ctx, notifydomain.CreateIntentInput{
			RecipientUserID: next.RequesterUserID,
			BarangayID:      next.BarangayID,
			Topic:           notifydomain.TopicEmergencyStatus,
			Payload:         map[string]string{"request_id": next.ID, "status": string(next.Status), "type": string(next.Type)},
			DedupeKey:       "emergency.status:" + next.ID + ":" + string(next.Status),
			Source:          "emergency",
		})
	}
	return next, nil
}

// ListActive returns the open requests of the caller's barangay, oldest
// first. The list is cached until the next write or the TTL.
func (s *Service) ListActive(ctx context.Context, caller requestctx.Principal, barangayID string) ([]domain.Request, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if err := requireOfficial(caller); err != nil {
		return nil, err
	}
	barangayID = scope(caller, barangayID)
	key := activeKey(barangayID)
	if s.cache != nil {
		var cached []domain.Request
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("read active emergencies cache", zap.Error(err))
		}
		s.observe(hit && err == nil)
		if hit && err == nil {
			return cached, nil
		}
	}
	active, err := s.store.ActiveRequests(ctx, barangayID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, active, s.activeTTL); err != nil {
			s.logger.Warn("write active emergencies cache", zap.Error(err))
		}
	}
	return active, nil
}

// CountActive counts a barangay's open requests.
func (s *Service) CountActive(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.store.CountActive(ctx, barangayID)
}

func activeKey(barangayID string) string {
	return "emergency:active:" + barangayID
}

func (s *Service) invalidate(ctx context.Context, barangayID string) {
	if s.cache == nil {
		return
	}
	// The unscoped list a superadmin reads spans every barangay.
	for _, key := range []string{activeKey(barangayID), activeKey("")} {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Warn("invalidate active emergencies cache", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *Service) observe(hit bool) {
	if s.observer != nil {
		s.observer.ObserveCache(hit)
	}
}

// alertOfficials notifies the barangay's officials and admins of a new
// request. Failures are logged.
func (s *Service) alertOfficials(ctx context.Context, r domain.Request) {
	if s.directory == nil {
		return
	}
	officials, err := s.directory.UsersByRole(ctx, r.BarangayID, user.RoleOfficial, user.RoleAdmin)
	if err != nil {
		s.logger.Warn("list officials to alert", zap.String("barangay_id", r.BarangayID), zap.Error(err))
		return
	}
	for _, u := range officials {
		if u.ID == r.RequesterUserID {
			continue
		}
		s.notify(ctx, notifydomain.CreateIntentInput{
			RecipientUserID: u.ID,
			BarangayID:      r.BarangayID,
			Topic:           notifydomain.TopicEmergencyCreated,
			Payload:         map[string]string{"request_id": r.ID, "type": string(r.Type), "location": r.Location},
			DedupeKey:       "emergency.created:" + r.ID,
			Source:          "emergency",
		})
	}
}

func (s *Service) mutated(ctx context.Context, caller requestctx.Principal, kind realtime.ChangeType, r domain.Request, action string) {
	if s.publisher != nil {
		change := realtime.NewChange(TableRequests, kind, r.BarangayID, r)
		s.publisher.Publish(change.Restrict(string(user.RoleOfficial), r.RequesterUserID))
	}
	s.record(ctx, activitydomain.RecordInput{
		BarangayID:  r.BarangayID,
		ActorUserID: caller.UserID,
		Action:      action,
		EntityType:  "emergency_request",
		EntityID:    r.ID,
		Details:     map[string]string{"type": string(r.Type), "status": strings.ToLower(string(r.Status))},
	})
}

func (s *Service) record(ctx context.Context, input activitydomain.RecordInput) {
	if s.activity == nil {
		return
	}
	if _, err := s.activity.Record(ctx, input); err != nil {
		s.logger.Warn("record activity", zap.String("action", input.Action), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, input notifydomain.CreateIntentInput) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.CreateIntent(ctx, input); err != nil {
		s.logger.Warn("create notification", zap.String("topic", input.Topic), zap.Error(err))
	}
}
