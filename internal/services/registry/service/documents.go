package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	notifydomain "github.com/louisbranch/baranex/internal/services/notifications/domain"
	"github.com/louisbranch/baranex/internal/services/realtime"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

// controlNumberAttempts bounds retries on a control number collision.
const controlNumberAttempts = 5

var errDocumentNotFound = apperrors.NotFound("document not found")

func randomSerial() (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

// CreateDocument files a document request. Residents file for themselves;
// the control number is assigned here.
func (s *Service) CreateDocument(ctx context.Context, caller requestctx.Principal, in domain.DocumentInput) (domain.Document, error) {
	if err := s.ready(); err != nil {
		return domain.Document{}, err
	}
	if err := requireUser(caller); err != nil {
		return domain.Document{}, err
	}
	barangayID, err := s.writeScope(ctx, caller, in.BarangayID)
	if err != nil {
		return domain.Document{}, err
	}
	d, err := domain.NormalizeDocument(domain.Document{BarangayID: barangayID}, in)
	if err != nil {
		return domain.Document{}, err
	}
	if err := s.checkResidentLink(ctx, barangayID, d.ResidentID); err != nil {
		return domain.Document{}, err
	}
	if d.ID, err = s.newID(); err != nil {
		return domain.Document{}, err
	}
	now := s.now()
	d.RequestedBy = caller.UserID
	d.CreatedAt, d.UpdatedAt = now, now
	for attempt := 0; ; attempt++ {
		serial, err := s.serial()
		if err != nil {
			return domain.Document{}, err
		}
		d.ControlNumber = domain.ControlNumber(now.Year(), serial)
		err = s.store.PutDocument(ctx, d)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrConflict) || attempt+1 >= controlNumberAttempts {
			return domain.Document{}, storeErr("document", err)
		}
	}
	s.mutated(ctx, caller, TableDocuments, realtime.Insert, d.BarangayID, d.ID, d)
	return d, nil
}

// GetDocument returns a request; residents see only their own.
func (s *Service) GetDocument(ctx context.Context, caller requestctx.Principal, documentID string) (domain.Document, error) {
	if err := s.ready(); err != nil {
		return domain.Document{}, err
	}
	if err := requireUser(caller); err != nil {
		return domain.Document{}, err
	}
	documentID, err := requireID("document id", documentID)
	if err != nil {
		return domain.Document{}, err
	}
	d, err := s.store.GetDocument(ctx, readScope(caller, ""), documentID)
	if err != nil {
		return domain.Document{}, storeErr("document", err)
	}
	if !isOfficial(caller) && d.RequestedBy != caller.UserID {
		return domain.Document{}, errDocumentNotFound
	}
	return d, nil
}

// ListDocuments lists requests newest first; residents see only their own.
func (s *Service) ListDocuments(ctx context.Context, caller requestctx.Principal, q domain.ListQuery) (listing.Page[domain.Document], error) {
	if err := s.ready(); err != nil {
		return listing.Page[domain.Document]{}, err
	}
	if err := requireUser(caller); err != nil {
		return listing.Page[domain.Document]{}, err
	}
	query := domain.DocumentQuery{ListQuery: listQuery(caller, q)}
	if !isOfficial(caller) {
		query.RequestedBy = caller.UserID
	}
	return s.store.ListDocuments(ctx, query)
}

// UpdateDocument applies an official's changes, including status moves.
// The requester is notified when the status changes.
func (s *Service) UpdateDocument(ctx context.Context, caller requestctx.Principal, documentID string, in domain.DocumentUpdate) (domain.Document, error) {
	if err := requireOfficial(caller); err != nil {
		return domain.Document{}, err
	}
	current, err := s.GetDocument(ctx, caller, documentID)
	if err != nil {
		return domain.Document{}, err
	}
	now := s.now()
	d, err := domain.ApplyDocumentUpdate(current, in, now)
	if err != nil {
		return domain.Document{}, err
	}
	d.UpdatedAt = now
	if err := s.store.UpdateDocument(ctx, d); err != nil {
		return domain.Document{}, storeErr("document", err)
	}
	s.mutated(ctx, caller, TableDocuments, realtime.Update, d.BarangayID, d.ID, d)
	if d.Status != current.Status && d.RequestedBy != "" {
		s.notify(ctx, notifydomain.CreateIntentInput{
			RecipientUserID: d.RequestedBy,
			BarangayID:      d.BarangayID,
			Topic:           notifydomain.TopicDocumentStatus,
			Payload: map[string]string{
				"document_id":    d.ID,
				"control_number": d.ControlNumber,
				"type":           string(d.Type),
				"status":         string(d.Status),
			},
			DedupeKey: notifydomain.TopicDocumentStatus + ":" + d.ID + ":" + string(d.Status),
			Source:    "registry",
		})
	}
	return d, nil
}

// DeleteDocument removes a request.
func (s *Service) DeleteDocument(ctx context.Context, caller requestctx.Principal, documentID string) error {
	if err := requireOfficial(caller); err != nil {
		return err
	}
	d, err := s.GetDocument(ctx, caller, documentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDocument(ctx, d.BarangayID, d.ID); err != nil {
		return storeErr("document", err)
	}
	s.mutated(ctx, caller, TableDocuments, realtime.Delete, d.BarangayID, d.ID, map[string]string{"id": d.ID})
	return nil
}
