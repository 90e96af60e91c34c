package service

import "context"

// CountResidents counts a barangay's residents.
func (s *Service) CountResidents(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.store.CountResidents(ctx, barangayID)
}

// CountHouseholds counts a barangay's households.
func (s *Service) CountHouseholds(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.store.CountHouseholds(ctx, barangayID)
}

// CountActiveOfficials counts officials currently serving.
func (s *Service) CountActiveOfficials(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.store.CountActiveOfficials(ctx, barangayID)
}

// CountOpenIncidents counts blotter entries not yet settled or dismissed.
func (s *Service) CountOpenIncidents(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.store.CountOpenIncidents(ctx, barangayID)
}

// CountPendingDocuments counts document requests not yet released or rejected.
func (s *Service) CountPendingDocuments(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.store.CountPendingDocuments(ctx, barangayID)
}

// CountPublishedAnnouncements counts announcements visible right now.
func (s *Service) CountPublishedAnnouncements(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	return s.store.CountPublishedAnnouncements(ctx, barangayID, s.now())
}
