package sqlite

import (
	"context"
	"fmt"

	"github.com/louisbranch/baranex/internal/platform/storage/filter"
	"github.com/louisbranch/baranex/internal/platform/storage/listing"
	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/registry/domain"
)

// ResidentSchema lists the fields accepted by resident filters.
var ResidentSchema = withTimes(filter.Schema{
	"first_name":     {Column: "first_name", Kind: filter.String},
	"last_name":      {Column: "last_name", Kind: filter.String},
	"gender":         {Column: "gender", Kind: filter.String},
	"civil_status":   {Column: "civil_status", Kind: filter.String},
	"purok":          {Column: "purok", Kind: filter.String},
	"household_id":   {Column: "household_id", Kind: filter.String},
	"household_role": {Column: "household_role", Kind: filter.String},
	"is_voter":       {Column: "is_voter", Kind: filter.Bool},
	"is_pwd":         {Column: "is_pwd", Kind: filter.Bool},
})

var residents = table[domain.Resident]{
	name: "residents",
	columns: []string{"id", "barangay_id", "first_name", "middle_name", "last_name", "suffix", "gender",
		"birthdate", "civil_status", "occupation", "phone", "email", "address", "purok", "is_voter",
		"is_pwd", "household_id", "household_role", "avatar_key", "id_scan_key", "created_by",
		"created_at", "updated_at"},
	values: func(r domain.Resident) []any {
		return []any{r.ID, r.BarangayID, r.FirstName, r.MiddleName, r.LastName, r.Suffix, string(r.Gender),
			r.Birthdate, string(r.CivilStatus), r.Occupation, r.Phone, r.Email, r.Address, r.Purok,
			sqlitedb.BoolInt(r.Voter), sqlitedb.BoolInt(r.PWD), r.HouseholdID, string(r.HouseholdRole),
			r.AvatarKey, r.IDScanKey, r.CreatedBy, sqlitedb.ToMillis(r.CreatedAt), sqlitedb.ToMillis(r.UpdatedAt)}
	},
	scan: func(row rowScanner) (domain.Resident, error) {
		var (
			r                    domain.Resident
			gender, civil, role  string
			createdAt, updatedAt int64
		)
		if err := row.Scan(&r.ID, &r.BarangayID, &r.FirstName, &r.MiddleName, &r.LastName, &r.Suffix, &gender,
			&r.Birthdate, &civil, &r.Occupation, &r.Phone, &r.Email, &r.Address, &r.Purok, &r.Voter,
			&r.PWD, &r.HouseholdID, &role, &r.AvatarKey, &r.IDScanKey, &r.CreatedBy,
			&createdAt, &updatedAt); err != nil {
			return domain.Resident{}, err
		}
		r.Gender, r.CivilStatus, r.HouseholdRole = domain.Gender(gender), domain.CivilStatus(civil), domain.HouseholdRole(role)
		r.CreatedAt, r.UpdatedAt = sqlitedb.FromMillis(createdAt), sqlitedb.FromMillis(updatedAt)
		return r, nil
	},
	key:    func(r domain.Resident) (int64, string) { return createdKey(r.CreatedAt, r.ID) },
	schema: ResidentSchema,
}

// PutResident inserts a resident.
func (s *Store) PutResident(ctx context.Context, r domain.Resident) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return residents.insert(ctx, s.sqlDB, r)
}

// UpdateResident rewrites a resident's mutable columns.
func (s *Store) UpdateResident(ctx context.Context, r domain.Resident) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return residents.update(ctx, s.sqlDB, r)
}

// GetResident returns a resident.
func (s *Store) GetResident(ctx context.Context, barangayID, residentID string) (domain.Resident, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Resident{}, err
	}
	return residents.get(ctx, s.sqlDB, barangayID, residentID)
}

// DeleteResident removes a resident.
func (s *Store) DeleteResident(ctx context.Context, barangayID, residentID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return residents.delete(ctx, s.sqlDB, barangayID, residentID)
}

// ListResidents lists residents newest first.
func (s *Store) ListResidents(ctx context.Context, q domain.ListQuery) (listing.Page[domain.Resident], error) {
	if err := s.ready(ctx); err != nil {
		return emptyPage[domain.Resident](), err
	}
	return residents.list(ctx, s.sqlDB, q, nil, nil)
}

// HouseholdResidents returns every resident of a household, oldest first.
func (s *Store) HouseholdResidents(ctx context.Context, barangayID, householdID string) ([]domain.Resident, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+residents.selectList()+" FROM residents WHERE barangay_id = ? AND household_id = ? ORDER BY created_at, id",
		barangayID, householdID)
	if err != nil {
		return nil, fmt.Errorf("list household residents: %w", err)
	}
	defer rows.Close()
	var out []domain.Resident
	for rows.Next() {
		r, err := residents.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan resident: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ResidentPhones returns the distinct phones on file for a barangay.
func (s *Store) ResidentPhones(ctx context.Context, barangayID string) ([]string, error) {
	return s.phones(ctx, `SELECT DISTINCT phone FROM residents WHERE barangay_id = ? AND phone != '' ORDER BY phone`, barangayID)
}

// CountResidents counts a barangay's residents.
func (s *Store) CountResidents(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return residents.count(ctx, s.sqlDB, barangayID, "")
}

// HouseholdSchema lists the fields accepted by household filters.
var HouseholdSchema = withTimes(filter.Schema{
	"household_number": {Column: "household_number", Kind: filter.String},
	"head_resident_id": {Column: "head_resident_id", Kind: filter.String},
	"purok":            {Column: "purok", Kind: filter.String},
})

var households = table[domain.Household]{
	name: "households",
	columns: []string{"id", "barangay_id", "household_number", "head_resident_id", "address", "purok",
		"monthly_income", "created_by", "created_at", "updated_at"},
	values: func(h domain.Household) []any {
		return []any{h.ID, h.BarangayID, h.HouseholdNumber, h.HeadResidentID, h.Address, h.Purok,
			h.MonthlyIncome, h.CreatedBy, sqlitedb.ToMillis(h.CreatedAt), sqlitedb.ToMillis(h.UpdatedAt)}
	},
	scan: func(row rowScanner) (domain.Household, error) {
		var (
			h                    domain.Household
			createdAt, updatedAt int64
		)
		if err := row.Scan(&h.ID, &h.BarangayID, &h.HouseholdNumber, &h.HeadResidentID, &h.Address, &h.Purok,
			&h.MonthlyIncome, &h.CreatedBy, &createdAt, &updatedAt); err != nil {
			return domain.Household{}, err
		}
		h.CreatedAt, h.UpdatedAt = sqlitedb.FromMillis(createdAt), sqlitedb.FromMillis(updatedAt)
		return h, nil
	},
	key:    func(h domain.Household) (int64, string) { return createdKey(h.CreatedAt, h.ID) },
	schema: HouseholdSchema,
}

// PutHousehold inserts a household; the number must be unique per barangay.
func (s *Store) PutHousehold(ctx context.Context, h domain.Household) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return households.insert(ctx, s.sqlDB, h)
}

// UpdateHousehold rewrites a household's mutable columns.
func (s *Store) UpdateHousehold(ctx context.Context, h domain.Household) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return households.update(ctx, s.sqlDB, h)
}

// GetHousehold returns a household.
func (s *Store) GetHousehold(ctx context.Context, barangayID, householdID string) (domain.Household, error) {
	if err := s.ready(ctx); err != nil {
		return domain.Household{}, err
	}
	return households.get(ctx, s.sqlDB, barangayID, householdID)
}

// DeleteHousehold removes a household and detaches its residents.
func (s *Store) DeleteHousehold(ctx context.Context, barangayID, householdID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := households.delete(ctx, tx, barangayID, householdID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE residents SET household_id = '', household_role = '' WHERE household_id = ?`, householdID); err != nil {
		return fmt.Errorf("detach household residents: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListHouseholds lists households newest first.
func (s *Store) ListHouseholds(ctx context.Context, q domain.ListQuery) (listing.Page[domain.Household], error) {
	if err := s.ready(ctx); err != nil {
		return emptyPage[domain.Household](), err
	}
	return households.list(ctx, s.sqlDB, q, nil, nil)
}

// CountHouseholds counts a barangay's households.
func (s *Store) CountHouseholds(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return households.count(ctx, s.sqlDB, barangayID, "")
}
