package service

import (
	"context"
	"errors"
	"strings"

	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

// BarangayExists reports whether a barangay is registered.
func (s *Service) BarangayExists(ctx context.Context, barangayID string) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	barangayID = strings.TrimSpace(barangayID)
	if barangayID == "" {
		return false, nil
	}
	_, err := s.store.GetBarangay(ctx, barangayID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeErr("barangay", err)
	}
	return true, nil
}

// PutBarangay registers or renames a barangay.
func (s *Service) PutBarangay(ctx context.Context, b domain.Barangay) (domain.Barangay, error) {
	if err := s.ready(); err != nil {
		return domain.Barangay{}, err
	}
	b, err := domain.NormalizeBarangay(b)
	if err != nil {
		return domain.Barangay{}, err
	}
	now := s.now()
	if existing, err := s.store.GetBarangay(ctx, b.ID); err == nil {
		b.CreatedAt = existing.CreatedAt
	} else if errors.Is(err, domain.ErrNotFound) {
		b.CreatedAt = now
	} else {
		return domain.Barangay{}, storeErr("barangay", err)
	}
	b.UpdatedAt = now
	if err := s.store.PutBarangay(ctx, b); err != nil {
		return domain.Barangay{}, storeErr("barangay", err)
	}
	return b, nil
}

// GetBarangay returns a barangay.
func (s *Service) GetBarangay(ctx context.Context, barangayID string) (domain.Barangay, error) {
	if err := s.ready(); err != nil {
		return domain.Barangay{}, err
	}
	b, err := s.store.GetBarangay(ctx, strings.TrimSpace(barangayID))
	return b, storeErr("barangay", err)
}

// ListBarangays returns every barangay.
func (s *Service) ListBarangays(ctx context.Context) ([]domain.Barangay, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.ListBarangays(ctx)
}

// DocumentCatalog lists the requestable documents.
func (s *Service) DocumentCatalog() []domain.DocumentTypeInfo {
	return domain.DocumentCatalog
}
