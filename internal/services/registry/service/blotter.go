package service

import (
	"context"
	"errors"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/services/realtime"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

// CreateIncident files a blotter entry and assigns its case number.
func (s *Service) CreateIncident(ctx context.Context, caller requestctx.Principal, in domain.IncidentInput) (domain.Incident, error) {
	if err := s.ready(); err != nil {
		return domain.Incident{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return domain.Incident{}, err
	}
	barangayID, err := s.writeScope(ctx, caller, in.BarangayID)
	if err != nil {
		return domain.Incident{}, err
	}
	now := s.now()
	i, err := domain.NormalizeIncident(domain.Incident{BarangayID: barangayID}, in, now)
	if err != nil {
		return domain.Incident{}, err
	}
	if i.ID, err = s.newID(); err != nil {
		return domain.Incident{}, err
	}
	i.ReportedBy = caller.UserID
	i.CreatedAt, i.UpdatedAt = now, now
	created, err := s.store.CreateIncident(ctx, i)
	if err != nil {
		return domain.Incident{}, storeErr("incident", err)
	}
	s.mutated(ctx, caller, TableIncidents, realtime.Insert, created.BarangayID, created.ID, created)
	return created, nil
}

// GetIncident returns a blotter entry.
func (s *Service) GetIncident(ctx context.Context, caller requestctx.Principal, incidentID string) (domain.Incident, error) {
	if err := s.ready(); err != nil {
		return domain.Incident{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return domain.Incident{}, err
	}
	incidentID, err := requireID("incident id", incidentID)
	if err != nil {
		return domain.Incident{}, err
	}
	i, err := s.store.GetIncident(ctx, readScope(caller, ""), incidentID)
	return i, storeErr("incident", err)
}

// ListIncidents lists blotter entries newest first.
func (s *Service) ListIncidents(ctx context.Context, caller requestctx.Principal, q domain.ListQuery) (listing.Page[domain.Incident], error) {
	if err := s.ready(); err != nil {
		return listing.Page[domain.Incident]{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return listing.Page[domain.Incident]{}, err
	}
	return s.store.ListIncidents(ctx, listQuery(caller, q))
}

// UpdateIncident replaces a blotter entry's editable fields; the case number
// is kept.
func (s *Service) UpdateIncident(ctx context.Context, caller requestctx.Principal, incidentID string, in domain.IncidentInput) (domain.Incident, error) {
	current, err := s.GetIncident(ctx, caller, incidentID)
	if err != nil {
		return domain.Incident{}, err
	}
	now := s.now()
	i, err := domain.NormalizeIncident(current, in, now)
	if err != nil {
		return domain.Incident{}, err
	}
	i.UpdatedAt = now
	if err := s.store.UpdateIncident(ctx, i); err != nil {
		return domain.Incident{}, storeErr("incident", err)
	}
	s.mutated(ctx, caller, TableIncidents, realtime.Update, i.BarangayID, i.ID, i)
	return i, nil
}

// DeleteIncident removes a blotter entry.
func (s *Service) DeleteIncident(ctx context.Context, caller requestctx.Principal, incidentID string) error {
	i, err := s.GetIncident(ctx, caller, incidentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteIncident(ctx, i.BarangayID, i.ID); err != nil {
		return storeErr("incident", err)
	}
	s.mutated(ctx, caller, TableIncidents, realtime.Delete, i.BarangayID, i.ID, map[string]string{"id": i.ID})
	return nil
}

var errIncidentMissing = apperrors.InvalidArgument("incident does not exist in this barangay")

func (s *Service) checkIncidentLink(ctx context.Context, barangayID, incidentID string) error {
	if incidentID == "" {
		return nil
	}
	_, err := s.store.GetIncident(ctx, barangayID, incidentID)
	if errors.Is(err, domain.ErrNotFound) {
		return errIncidentMissing
	}
	return storeErr("incident", err)
}

// CreateWatchlistEntry flags a person of interest.
func (s *Service) CreateWatchlistEntry(ctx context.Context, caller requestctx.Principal, in domain.WatchlistInput) (domain.WatchlistEntry, error) {
	if err := s.ready(); err != nil {
		return domain.WatchlistEntry{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return domain.WatchlistEntry{}, err
	}
	barangayID, err := s.writeScope(ctx, caller, in.BarangayID)
	if err != nil {
		return domain.WatchlistEntry{}, err
	}
	w, err := domain.NormalizeWatchlist(domain.WatchlistEntry{BarangayID: barangayID}, in)
	if err != nil {
		return domain.WatchlistEntry{}, err
	}
	if err := s.checkIncidentLink(ctx, barangayID, w.IncidentID); err != nil {
		return domain.WatchlistEntry{}, err
	}
	if w.ID, err = s.newID(); err != nil {
		return domain.WatchlistEntry{}, err
	}
	now := s.now()
	w.CreatedBy = caller.UserID
	w.CreatedAt, w.UpdatedAt = now, now
	if err := s.store.PutWatchlistEntry(ctx, w); err != nil {
		return domain.WatchlistEntry{}, storeErr("watchlist entry", err)
	}
	s.mutated(ctx, caller, TableWatchlist, realtime.Insert, w.BarangayID, w.ID, w)
	return w, nil
}

// GetWatchlistEntry returns a watchlist entry.
func (s *Service) GetWatchlistEntry(ctx context.Context, caller requestctx.Principal, entryID string) (domain.WatchlistEntry, error) {
	if err := s.ready(); err != nil {
		return domain.WatchlistEntry{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return domain.WatchlistEntry{}, err
	}
	entryID, err := requireID("watchlist entry id", entryID)
	if err != nil {
		return domain.WatchlistEntry{}, err
	}
	w, err := s.store.GetWatchlistEntry(ctx, readScope(caller, ""), entryID)
	return w, storeErr("watchlist entry", err)
}

// ListWatchlist lists watchlist entries newest first.
func (s *Service) ListWatchlist(ctx context.Context, caller requestctx.Principal, q domain.ListQuery) (listing.Page[domain.WatchlistEntry], error) {
	if err := s.ready(); err != nil {
		return listing.Page[domain.WatchlistEntry]{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return listing.Page[domain.WatchlistEntry]{}, err
	}
	return s.store.ListWatchlist(ctx, listQuery(caller, q))
}

// UpdateWatchlistEntry replaces an entry's editable fields.
func (s *Service) UpdateWatchlistEntry(ctx context.Context, caller requestctx.Principal, entryID string, in domain.WatchlistInput) (domain.WatchlistEntry, error) {
	current, err := s.GetWatchlistEntry(ctx, caller, entryID)
	if err != nil {
		return domain.WatchlistEntry{}, err
	}
	w, err := domain.NormalizeWatchlist(current, in)
	if err != nil {
		return domain.WatchlistEntry{}, err
	}
	if err := s.checkIncidentLink(ctx, w.BarangayID, w.IncidentID); err != nil {
		return domain.WatchlistEntry{}, err
	}
	w.UpdatedAt = s.now()
	if err := s.store.UpdateWatchlistEntry(ctx, w); err != nil {
		return domain.WatchlistEntry{}, storeErr("watchlist entry", err)
	}
	s.mutated(ctx, caller, TableWatchlist, realtime.Update, w.BarangayID, w.ID, w)
	return w, nil
}

// DeleteWatchlistEntry removes an entry.
func (s *Service) DeleteWatchlistEntry(ctx context.Context, caller requestctx.Principal, entryID string) error {
	w, err := s.GetWatchlistEntry(ctx, caller, entryID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteWatchlistEntry(ctx, w.BarangayID, w.ID); err != nil {
		return storeErr("watchlist entry", err)
	}
	s.mutated(ctx, caller, TableWatchlist, realtime.Delete, w.BarangayID, w.ID, map[string]string{"id": w.ID})
	return nil
}
