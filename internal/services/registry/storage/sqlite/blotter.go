package sqlite

import (
	"context"
	"fmt"

	"github.com/louisbranch/baranex/internal/platform/storage/filter"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

// IncidentSchema lists the fields accepted by incident filters.
var IncidentSchema = withTimes(filter.Schema{
	"status":        {Column: "status", Kind: filter.String},
	"category":      {Column: "category", Kind: filter.String},
	"case_number":   {Column: "case_number", Kind: filter.String},
	"reported_by":   {Column: "reported_by", Kind: filter.String},
	"incident_time": {Column: "incident_at", Kind: filter.Timestamp},
})

var incidents = table[domain.Incident]{
	name: "incidents",
	columns: []string{"id", "barangay_id", "case_number", "category", "complainant", "respondent", "narrative",
		"location", "incident_at", "status", "reported_by", "created_at", "updated_at"},
	values: func(i domain.Incident) []any {
		return []any{i.ID, i.BarangayID, i.CaseNumber, i.Category, i.Complainant, i.Respondent, i.Narrative,
			i.Location, sqlitedb.ToMillis(i.IncidentAt), string(i.Status), i.ReportedBy,
			sqlitedb.ToMillis(i.CreatedAt), sqlitedb.ToMillis(i.UpdatedAt)}
	},
	scan: func(row rowScanner) (domain.Incident, error) {
		var (
			i                                domain.Incident
			status                           string
			incidentAt, createdAt, updatedAt int64
		)
		if err := row.Scan(&i.ID, &i.BarangayID, &i.CaseNumber, &i.Category, &i.Complainant, &i.Respondent,
			&i.Narrative, &i.Location, &incidentAt, &status, &i.ReportedBy, &createdAt, &updatedAt); err != nil {
			return domain.Incident{}, err
		}
		i.Status = domain.IncidentStatus(status)
		i.IncidentAt = sqlitedb.FromMillis(incidentAt)
		i.CreatedAt, i.UpdatedAt = sqlitedb.FromMillis(createdAt), sqlitedb.FromMillis(updatedAt)
		return i, nil
	},
	key:    func(i domain.Incident) (int64, string) { return createdKey(i.CreatedAt, i.ID) },
	schema: IncidentSchema,
}

// CreateIncident assigns the next case number for the incident's barangay and
// creation year and inserts it.
func (s *Store) CreateIncident(ctx context.Context, i domain.Incident) (domain.Incident, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Incident{}, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Incident{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	year := i.CreatedAt.UTC().Year()
	var seq int
	err = tx.QueryRowContext(ctx, `
INSERT INTO incident_sequences (barangay_id, year, last_seq) VALUES (?, ?, 1)
ON CONFLICT(barangay_id, year) DO UPDATE SET last_seq = last_seq + 1
RETURNING last_seq`, i.BarangayID, year).Scan(&seq)
	if err != nil {
		return domain.Incident{}, fmt.Errorf("next case number: %w", err)
	}
	i.CaseNumber = domain.CaseNumber(year, seq)
	if err := incidents.insert(ctx, tx, i); err != nil {
		return domain.Incident{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Incident{}, fmt.Errorf("commit tx: %w", err)
	}
	return i, nil
}

// UpdateIncident rewrites an incident's mutable columns. The case number
// never changes.
func (s *Store) UpdateIncident(ctx context.Context, i domain.Incident) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	current, err := incidents.get(ctx, s.sqlDB, i.BarangayID, i.ID)
	if err != nil {
		return err
	}
	i.CaseNumber = current.CaseNumber
	return incidents.update(ctx, s.sqlDB, i)
}

// GetIncident returns an incident.
func (s *Store) GetIncident(ctx context.Context, barangayID, incidentID string) (domain.Incident, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Incident{}, err
	}
	return incidents.get(ctx, s.sqlDB, barangayID, incidentID)
}

// DeleteIncident removes an incident.
func (s *Store) DeleteIncident(ctx context.Context, barangayID, incidentID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return incidents.delete(ctx, s.sqlDB, barangayID, incidentID)
}

// ListIncidents lists incidents newest first.
func (s *Store) ListIncidents(ctx context.Context, q domain.ListQuery) (listing.Page[domain.Incident], error) {
	if err := s.ready(ctx); err != nil {
		return emptyPage[domain.Incident](), err
	}
	return incidents.list(ctx, s.sqlDB, q, nil, nil)
}

// CountOpenIncidents counts incidents still open or under mediation.
func (s *Store) CountOpenIncidents(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return incidents.count(ctx, s.sqlDB, barangayID, "status IN ('open', 'under_mediation')")
}

// WatchlistSchema lists the fields accepted by watchlist filters.
var WatchlistSchema = withTimes(filter.Schema{
	"name":        {Column: "name", Kind: filter.String},
	"incident_id": {Column: "incident_id", Kind: filter.String},
	"active":      {Column: "active", Kind: filter.Bool},
})

var watchlist = table[domain.WatchlistEntry]{
	name: "watchlist",
	columns: []string{"id", "barangay_id", "name", "alias", "reason", "incident_id", "active", "created_by",
		"created_at", "updated_at"},
	values: func(w domain.WatchlistEntry) []any {
		return []any{w.ID, w.BarangayID, w.Name, w.Alias, w.Reason, w.IncidentID, sqlitedb.BoolInt(w.Active),
			w.CreatedBy, sqlitedb.ToMillis(w.CreatedAt), sqlitedb.ToMillis(w.UpdatedAt)}
	},
	scan: func(row rowScanner) (domain.WatchlistEntry, error) {
		var (
			w                    domain.WatchlistEntry
			createdAt, updatedAt int64
		)
		if err := row.Scan(&w.ID, &w.BarangayID, &w.Name, &w.Alias, &w.Reason, &w.IncidentID, &w.Active,
			&w.CreatedBy, &createdAt, &updatedAt); err != nil {
			return domain.WatchlistEntry{}, err
		}
		w.CreatedAt, w.UpdatedAt = sqlitedb.FromMillis(createdAt), sqlitedb.FromMillis(updatedAt)
		return w, nil
	},
	key:    func(w domain.WatchlistEntry) (int64, string) { return createdKey(w.CreatedAt, w.ID) },
	schema: WatchlistSchema,
}

// PutWatchlistEntry inserts an entry.
func (s *Store) PutWatchlistEntry(ctx context.Context, w domain.WatchlistEntry) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return watchlist.insert(ctx, s.sqlDB, w)
}

// UpdateWatchlistEntry rewrites an entry's mutable columns.
func (s *Store) UpdateWatchlistEntry(ctx context.Context, w domain.WatchlistEntry) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return watchlist.update(ctx, s.sqlDB, w)
}

// GetWatchlistEntry returns an entry.
func (s *Store) GetWatchlistEntry(ctx context.Context, barangayID, entryID string) (domain.WatchlistEntry, error) {
	if err := s.ready(ctx); err != nil {
		return domain.WatchlistEntry{}, err
	}
	return watchlist.get(ctx, s.sqlDB, barangayID, entryID)
}

// DeleteWatchlistEntry removes an entry.
func (s *Store) DeleteWatchlistEntry(ctx context.Context, barangayID, entryID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return watchlist.delete(ctx, s.sqlDB, barangayID, entryID)
}

// ListWatchlist lists entries newest first.
func (s *Store) ListWatchlist(ctx context.Context, q domain.ListQuery) (listing.Page[domain.WatchlistEntry], error) {
	if err := s.ready(ctx); err != nil {
		return emptyPage[domain.WatchlistEntry](), err
	}
	return watchlist.list(ctx, s.sqlDB, q, nil, nil)
}
