package service

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/objectstore"
	"github.com/louisbranch/baranex/internal/platform/requestctx"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/services/realtime"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

// CreateResident registers a resident.
func (s *Service) CreateResident(ctx context.Context, caller requestctx.Principal, in domain.ResidentInput) (domain.Resident, error) {
	if err := s.ready(); err != nil {
		return domain.Resident{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return domain.Resident{}, err
	}
	barangayID, err := s.writeScope(ctx, caller, in.BarangayID)
	if err != nil {
		return domain.Resident{}, err
	}
	now := s.now()
	r, err := domain.NormalizeResident(domain.Resident{BarangayID: barangayID}, in, now)
	if err != nil {
		return domain.Resident{}, err
	}
	if err := s.checkHousehold(ctx, barangayID, r.HouseholdID); err != nil {
		return domain.Resident{}, err
	}
	if r.ID, err = s.newID(); err != nil {
		return domain.Resident{}, err
	}
	r.CreatedBy = caller.UserID
	r.CreatedAt, r.UpdatedAt = now, now
	if err := s.store.PutResident(ctx, r); err != nil {
		return domain.Resident{}, storeErr("resident", err)
	}
	s.mutated(ctx, caller, TableResidents, realtime.Insert, r.BarangayID, r.ID, r)
	return r, nil
}

// GetResident returns a resident.
func (s *Service) GetResident(ctx context.Context, caller requestctx.Principal, residentID string) (domain.Resident, error) {
	if err := s.ready(); err != nil {
		return domain.Resident{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return domain.Resident{}, err
	}
	residentID, err := requireID("resident id", residentID)
	if err != nil {
		return domain.Resident{}, err
	}
	r, err := s.store.GetResident(ctx, readScope(caller, ""), residentID)
	return r, storeErr("resident", err)
}

// ListResidents lists residents newest first.
func (s *Service) ListResidents(ctx context.Context, caller requestctx.Principal, q domain.ListQuery) (listing.Page[domain.Resident], error) {
	if err := s.ready(); err != nil {
		return listing.Page[domain.Resident]{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return listing.Page[domain.Resident]{}, err
	}
	return s.store.ListResidents(ctx, listQuery(caller, q))
}

// UpdateResident replaces a resident's editable fields.
func (s *Service) UpdateResident(ctx context.Context, caller requestctx.Principal, residentID string, in domain.ResidentInput) (domain.Resident, error) {
	current, err := s.GetResident(ctx, caller, residentID)
	if err != nil {
		return domain.Resident{}, err
	}
	now := s.now()
	r, err := domain.NormalizeResident(current, in, now)
	if err != nil {
		return domain.Resident{}, err
	}
	if err := s.checkHousehold(ctx, r.BarangayID, r.HouseholdID); err != nil {
		return domain.Resident{}, err
	}
	r.UpdatedAt = now
	if err := s.store.UpdateResident(ctx, r); err != nil {
		return domain.Resident{}, storeErr("resident", err)
	}
	s.mutated(ctx, caller, TableResidents, realtime.Update, r.BarangayID, r.ID, r)
	return r, nil
}

// DeleteResident removes a resident and their ID scan.
func (s *Service) DeleteResident(ctx context.Context, caller requestctx.Principal, residentID string) error {
	r, err := s.GetResident(ctx, caller, residentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteResident(ctx, r.BarangayID, r.ID); err != nil {
		return storeErr("resident", err)
	}
	if r.IDScanKey != "" && s.objects != nil {
		if err := s.objects.Delete(ctx, objectstore.BucketIDScans, r.IDScanKey); err != nil {
			s.logger.Warn("delete id scan", zap.String("resident_id", r.ID), zap.Error(err))
		}
	}
	s.mutated(ctx, caller, TableResidents, realtime.Delete, r.BarangayID, r.ID, map[string]string{"id": r.ID})
	return nil
}

// UploadIDScan stores a resident's ID scan and replaces the previous one.
func (s *Service) UploadIDScan(ctx context.Context, caller requestctx.Principal, residentID string, body io.Reader) (domain.Resident, error) {
	if s.objects == nil {
		return domain.Resident{}, ErrNotConfigured
	}
	r, err := s.GetResident(ctx, caller, residentID)
	if err != nil {
		return domain.Resident{}, err
	}
	obj, err := s.objects.Put(ctx, objectstore.BucketIDScans, r.BarangayID, body)
	if err != nil {
		return domain.Resident{}, err
	}
	previous := r.IDScanKey
	r.IDScanKey = obj.Key
	r.UpdatedAt = s.now()
	if err := s.store.UpdateResident(ctx, r); err != nil {
		if delErr := s.objects.Delete(ctx, objectstore.BucketIDScans, obj.Key); delErr != nil {
			s.logger.Warn("delete orphaned id scan", zap.String("resident_id", r.ID), zap.Error(delErr))
		}
		return domain.Resident{}, storeErr("resident", err)
	}
	if previous != "" {
		if err := s.objects.Delete(ctx, objectstore.BucketIDScans, previous); err != nil {
			s.logger.Warn("delete replaced id scan", zap.String("resident_id", r.ID), zap.Error(err))
		}
	}
	s.mutated(ctx, caller, TableResidents, realtime.Update, r.BarangayID, r.ID, r)
	return r, nil
}

// ResidentPhones returns the phone numbers on file for a barangay.
func (s *Service) ResidentPhones(ctx context.Context, barangayID string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ResidentPhones(ctx, barangayID)
}

// OfficialPhones returns the contact numbers of a barangay's active officials.
func (s *Service) OfficialPhones(ctx context.Context, barangayID string) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.OfficialPhones(ctx, barangayID)
}

var (
	errHouseholdMissing = apperrors.InvalidArgument("household does not exist in this barangay")
	errResidentMissing  = apperrors.InvalidArgument("resident does not exist in this barangay")
)

func (s *Service) checkHousehold(ctx context.Context, barangayID, householdID string) error {
	if householdID == "" {
		return nil
	}
	_, err := s.store.GetHousehold(ctx, barangayID, householdID)
	if errors.Is(err, domain.ErrNotFound) {
		return errHouseholdMissing
	}
	return storeErr("household", err)
}

// CreateHousehold registers a household.
func (s *Service) CreateHousehold(ctx context.Context, caller requestctx.Principal, in domain.HouseholdInput) (domain.Household, error) {
	if err := s.ready(); err != nil {
		return domain.Household{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return domain.Household{}, err
	}
	barangayID, err := s.writeScope(ctx, caller, in.BarangayID)
	if err != nil {
		return domain.Household{}, err
	}
	h, err := domain.NormalizeHousehold(domain.Household{BarangayID: barangayID}, in)
	if err != nil {
		return domain.Household{}, err
	}
	if err := s.checkHead(ctx, h); err != nil {
		return domain.Household{}, err
	}
	if h.ID, err = s.newID(); err != nil {
		return domain.Household{}, err
	}
	now := s.now()
	h.CreatedBy = caller.UserID
	h.CreatedAt, h.UpdatedAt = now, now
	if err := s.store.PutHousehold(ctx, h); err != nil {
		return domain.Household{}, storeErr("household", err)
	}
	s.mutated(ctx, caller, TableHouseholds, realtime.Insert, h.BarangayID, h.ID, h)
	return h, nil
}

// GetHousehold returns a household.
func (s *Service) GetHousehold(ctx context.Context, caller requestctx.Principal, householdID string) (domain.Household, error) {
	if err := s.ready(); err != nil {
		return domain.Household{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return domain.Household{}, err
	}
	householdID, err := requireID("household id", householdID)
	if err != nil {
		return domain.Household{}, err
	}
	h, err := s.store.GetHousehold(ctx, readScope(caller, ""), householdID)
	return h, storeErr("household", err)
}

// ListHouseholds lists households newest first.
func (s *Service) ListHouseholds(ctx context.Context, caller requestctx.Principal, q domain.ListQuery) (listing.Page[domain.Household], error) {
	if err := s.ready(); err != nil {
		return listing.Page[domain.Household]{}, err
	}
	if err := requireOfficial(caller); err != nil {
		return listing.Page[domain.Household]{}, err
	}
	return s.store.ListHouseholds(ctx, listQuery(caller, q))
}

// UpdateHousehold replaces a household's editable fields.
func (s *Service) UpdateHousehold(ctx context.Context, caller requestctx.Principal, householdID string, in domain.HouseholdInput) (domain.Household, error) {
	current, err := s.GetHousehold(ctx, caller, householdID)
	if err != nil {
		return domain.Household{}, err
	}
	h, err := domain.NormalizeHousehold(current, in)
	if err != nil {
		return domain.Household{}, err
	}
	if err := s.checkHead(ctx, h); err != nil {
		return domain.Household{}, err
	}
	h.UpdatedAt = s.now()
	if err := s.store.UpdateHousehold(ctx, h); err != nil {
		return domain.Household{}, storeErr("household", err)
	}
	s.mutated(ctx, caller, TableHouseholds, realtime.Update, h.BarangayID, h.ID, h)
	return h, nil
}

// DeleteHousehold removes a household; its members are detached.
func (s *Service) DeleteHousehold(ctx context.Context, caller requestctx.Principal, householdID string) error {
	h, err := s.GetHousehold(ctx, caller, householdID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteHousehold(ctx, h.BarangayID, h.ID); err != nil {
		return storeErr("household", err)
	}
	s.mutated(ctx, caller, TableHouseholds, realtime.Delete, h.BarangayID, h.ID, map[string]string{"id": h.ID})
	return nil
}

// HouseholdMembers returns a household's residents labelled by relationship
// to the head.
func (s *Service) HouseholdMembers(ctx context.Context, caller requestctx.Principal, householdID string) ([]domain.Member, error) {
	h, err := s.GetHousehold(ctx, caller, householdID)
	if err != nil {
		return nil, err
	}
	residents, err := s.store.HouseholdResidents(ctx, h.BarangayID, h.ID)
	if err != nil {
		return nil, storeErr("household", err)
	}
	return domain.Members(h, residents), nil
}

func (s *Service) checkHead(ctx context.Context, h domain.Household) error {
	if h.HeadResidentID == "" {
		return nil
	}
	_, err := s.store.GetResident(ctx, h.BarangayID, h.HeadResidentID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrHouseholdHeadMismatch
	}
	return storeErr("resident", err)
}
