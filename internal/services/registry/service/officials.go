package service

import (
	"context"
	"errors"

	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/services/realtime"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

// CreateOfficial registers a barangay officer.
func (s *Service) CreateOfficial(ctx context.Context, caller requestctx.Principal, in domain.OfficialInput) (domain.Official, error) {
	if err := s.ready(); err != nil {
		return domain.Official{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return domain.Official{}, err
	}
	barangayID, err := s.writeScope(ctx, caller, in.BarangayID)
	if err != nil {
		return domain.Official{}, err
	}
	o, err := domain.NormalizeOfficial(domain.Official{BarangayID: barangayID}, in)
	if err != nil {
		return domain.Official{}, err
	}
	if err := s.checkResidentLink(ctx, barangayID, o.ResidentID); err != nil {
		return domain.Official{}, err
	}
	if o.ID, err = s.newID(); err != nil {
		return domain.Official{}, err
	}
	now := s.now()
	o.CreatedAt, o.UpdatedAt = now, now
	if err := s.store.PutOfficial(ctx, o); err != nil {
		return domain.Official{}, storeErr("official", err)
	}
	s.mutated(ctx, caller, TableOfficials, realtime.Insert, o.BarangayID, o.ID, o)
	return o, nil
}

// GetOfficial returns an official; any member of the barangay may read.
func (s *Service) GetOfficial(ctx context.Context, caller requestctx.Principal, officialID string) (domain.Official, error) {
	if err := s.ready(); err != nil {
		return domain.Official{}, err
	}
	if err := requireUser(caller); err != nil {
		return domain.Official{}, err
	}
	officialID, err := requireID("official id", officialID)
	if err != nil {
		return domain.Official{}, err
	}
	o, err := s.store.GetOfficial(ctx, readScope(caller, ""), officialID)
	return o, storeErr("official", err)
}

// ListOfficials lists officials newest first.
func (s *Service) ListOfficials(ctx context.Context, caller requestctx.Principal, q domain.ListQuery) (listing.Page[domain.Official], error) {
	if err := s.ready(); err != nil {
		return listing.Page[domain.Official]{}, err
	}
	if err := requireUser(caller); err != nil {
		return listing.Page[domain.Official]{}, err
	}
	return s.store.ListOfficials(ctx, listQuery(caller, q))
}

// UpdateOfficial replaces an official's editable fields.
func (s *Service) UpdateOfficial(ctx context.Context, caller requestctx.Principal, officialID string, in domain.OfficialInput) (domain.Official, error) {
	if err := requireOfficial(caller); err != nil {
		return domain.Official{}, err
	}
	current, err := s.GetOfficial(ctx, caller, officialID)
	if err != nil {
		return domain.Official{}, err
	}
	o, err := domain.NormalizeOfficial(current, in)
	if err != nil {
		return domain.Official{}, err
	}
	if err := s.checkResidentLink(ctx, o.BarangayID, o.ResidentID); err != nil {
		return domain.Official{}, err
	}
	o.UpdatedAt = s.now()
	if err := s.store.UpdateOfficial(ctx, o); err != nil {
		return domain.Official{}, storeErr("official", err)
	}
	s.mutated(ctx, caller, TableOfficials, realtime.Update, o.BarangayID, o.ID, o)
	return o, nil
}

// DeleteOfficial removes an official.
func (s *Service) DeleteOfficial(ctx context.Context, caller requestctx.Principal, officialID string) error {
	if err := requireOfficial(caller); err != nil {
		return err
	}
	o, err := s.GetOfficial(ctx, caller, officialID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteOfficial(ctx, o.BarangayID, o.ID); err != nil {
		return storeErr("official", err)
	}
	s.mutated(ctx, caller, TableOfficials, realtime.Delete, o.BarangayID, o.ID, map[string]string{"id": o.ID})
	return nil
}

func (s *Service) checkResidentLink(ctx context.Context, barangayID, residentID string) error {
	if residentID == "" {
		return nil
	}
	_, err := s.store.GetResident(ctx, barangayID, residentID)
	if errors.Is(err, domain.ErrNotFound) {
		return errResidentMissing
	}
	return storeErr("resident", err)
}
