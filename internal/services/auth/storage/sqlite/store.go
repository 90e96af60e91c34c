package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/baranex/internal/platform/storage/sqlitedb"
	"github.com/louisbranch/baranex/internal/services/auth/storage"
	"github.com/louisbranch/baranex/internal/services/auth/storage/sqlite/migrations"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

const userColumns = `id, email, phone, display_name, role, barangay_id, password_hash,
email_verified_at, avatar_key, cover_key, background_key, created_at, updated_at`

// Store implements auth persistence over SQLite.
type Store struct {
	sqlDB *sql.DB
	owned bool
}

var _ storage.Store = (*Store)(nil)

// DB returns the raw database handle.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Open opens an auth SQLite store at path and applies bundled migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	sqlDB, err := sqlitedb.Open(ctx, path, migrations.FS, ".")
	if err != nil {
		return nil, err
	}
	return &Store{sqlDB: sqlDB, owned: true}, nil
}

// New wraps a shared database handle and applies bundled migrations.
func New(ctx context.Context, sqlDB *sql.DB) (*Store, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	if err := sqlitedb.Migrate(ctx, sqlDB, migrations.FS, "."); err != nil {
		return nil, fmt.Errorf("migrate auth store: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the database when the store opened it.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil || !s.owned {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// PutUser inserts a new user.
func (s *Store) PutUser(ctx context.Context, u user.User) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, nullString(u.Phone), u.DisplayName, string(u.Role), u.BarangayID, u.PasswordHash,
		sqlitedb.NullMillis(u.EmailVerifiedAt), u.AvatarKey, u.CoverKey, u.BackgroundKey,
		sqlitedb.ToMillis(u.CreatedAt), sqlitedb.ToMillis(u.UpdatedAt),
	)
	if sqlitedb.IsUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// UpdateUser replaces the mutable fields of an existing user.
func (s *Store) UpdateUser(ctx context.Context, u user.User) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("user id is required")
	}
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE users SET email = ?, phone = ?, display_name = ?, role = ?, barangay_id = ?,
    password_hash = ?, email_verified_at = ?, avatar_key = ?, cover_key = ?,
    background_key = ?, updated_at = ?
WHERE id = ?`,
		u.Email, nullString(u.Phone), u.DisplayName, string(u.Role), u.BarangayID,
		u.PasswordHash, sqlitedb.NullMillis(u.EmailVerifiedAt), u.AvatarKey, u.CoverKey,
		u.BackgroundKey, sqlitedb.ToMillis(u.UpdatedAt), u.ID,
	)
	if sqlitedb.IsUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return expectOne(res)
}

// GetUser fetches a user by ID.
func (s *Store) GetUser(ctx context.Context, userID string) (user.User, error) {
	if strings.TrimSpace(userID) == "" {
		return user.User{}, fmt.Errorf("user id is required")
	}
	return s.getUserWhere(ctx, "id = ?", userID)
}

// GetUserByEmail fetches a user by normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	if strings.TrimSpace(email) == "" {
		return user.User{}, fmt.Errorf("email is required")
	}
	return s.getUserWhere(ctx, "email = ?", email)
}

// GetUserByPhone fetches a user by E.164 phone.
func (s *Store) GetUserByPhone(ctx context.Context, phone string) (user.User, error) {
	if strings.TrimSpace(phone) == "" {
		return user.User{}, fmt.Errorf("phone is required")
	}
	return s.getUserWhere(ctx, "phone = ?", phone)
}

func (s *Store) getUserWhere(ctx context.Context, where string, arg any) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, storage.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// DeleteUser removes a user; MFA factors and tokens cascade.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectOne(res)
}

// ListUsers returns users of a barangay ordered by creation time.
func (s *Store) ListUsers(ctx context.Context, barangayID string, roles ...user.Role) ([]user.User, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE barangay_id = ?`
	args := []any{barangayID}
	if len(roles) > 0 {
		query += ` AND role IN (?` + strings.Repeat(", ?", len(roles)-1) + `)`
		for _, role := range roles {
			args = append(args, string(role))
		}
	}
	query += ` ORDER BY created_at, id`
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CountUsers counts the users registered in a barangay.
func (s *Store) CountUsers(ctx context.Context, barangayID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE barangay_id = ?`, barangayID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// PutMFAFactor inserts or replaces a user's TOTP factor.
func (s *Store) PutMFAFactor(ctx context.Context, factor storage.MFAFactor) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(factor.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO mfa_factors (user_id, sealed_secret, enabled, enrolled_at, confirmed_at, last_used_step)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    sealed_secret = excluded.sealed_secret,
    enabled = excluded.enabled,
    enrolled_at = excluded.enrolled_at,
    confirmed_at = excluded.confirmed_at,
    last_used_step = excluded.last_used_step`,
		factor.UserID, factor.SealedSecret, sqlitedb.BoolInt(factor.Enabled),
		sqlitedb.ToMillis(factor.EnrolledAt), sqlitedb.NullMillis(factor.ConfirmedAt), factor.LastUsedStep,
	)
	if err != nil {
		return fmt.Errorf("put mfa factor: %w", err)
	}
	return nil
}

// GetMFAFactor fetches a user's TOTP factor.
func (s *Store) GetMFAFactor(ctx context.Context, userID string) (storage.MFAFactor, error) {
	if err := s.ready(ctx); err != nil {
		return storage.MFAFactor{}, err
	}
	var (
		factor      storage.MFAFactor
		enabled     int
		enrolledAt  int64
		confirmedAt sql.NullInt64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT user_id, sealed_secret, enabled, enrolled_at, confirmed_at, last_used_step
FROM mfa_factors WHERE user_id = ?`, userID).Scan(
		&factor.UserID, &factor.SealedSecret, &enabled, &enrolledAt, &confirmedAt, &factor.LastUsedStep,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.MFAFactor{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.MFAFactor{}, fmt.Errorf("get mfa factor: %w", err)
	}
	factor.Enabled = enabled != 0
	factor.EnrolledAt = sqlitedb.FromMillis(enrolledAt)
	factor.ConfirmedAt = sqlitedb.FromNullMillis(confirmedAt)
	return factor, nil
}

// DeleteMFAFactor removes a user's TOTP factor.
func (s *Store) DeleteMFAFactor(ctx context.Context, userID string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM mfa_factors WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete mfa factor: %w", err)
	}
	return expectOne(res)
}

// ConsumeMFAStep advances last_used_step only when step is newer.
func (s *Store) ConsumeMFAStep(ctx context.Context, userID string, step int64) (bool, error) {
	if err := s.ready(ctx); err != nil {
		return false, err
	}
	res, err := s.sqlDB.ExecContext(ctx, `
UPDATE mfa_factors SET last_used_step = ? WHERE user_id = ? AND last_used_step < ?`,
		step, userID, step)
	if err != nil {
		return false, fmt.Errorf("consume mfa step: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume mfa step: %w", err)
	}
	return affected == 1, nil
}

// PutVerificationToken stores a hashed verification token.
func (s *Store) PutVerificationToken(ctx context.Context, token storage.VerificationToken) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if token.TokenHash == "" || token.UserID == "" {
		return fmt.Errorf("token hash and user id are required")
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO verification_tokens (token_hash, user_id, created_at, expires_at, used_at)
VALUES (?, ?, ?, ?, ?)`,
		token.TokenHash, token.UserID, sqlitedb.ToMillis(token.CreatedAt),
		sqlitedb.ToMillis(token.ExpiresAt), sqlitedb.NullMillis(token.UsedAt),
	)
	if sqlitedb.IsUniqueViolation(err) {
		return storage.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("put verification token: %w", err)
	}
	return nil
}

// GetVerificationToken fetches a token by hash.
func (s *Store) GetVerificationToken(ctx context.Context, tokenHash string) (storage.VerificationToken, error) {
	return s.getTokenWhere(ctx, `token_hash = ?`, tokenHash)
}

// LatestVerificationToken fetches the newest token issued to a user.
func (s *Store) LatestVerificationToken(ctx context.Context, userID string) (storage.VerificationToken, error) {
	return s.getTokenWhere(ctx, `user_id = ? ORDER BY created_at DESC LIMIT 1`, userID)
}

func (s *Store) getTokenWhere(ctx context.Context, where string, arg any) (storage.VerificationToken, error) {
	if err := s.ready(ctx); err != nil {
		return storage.VerificationToken{}, err
	}
	var (
		token                storage.VerificationToken
		createdAt, expiresAt int64
		usedAt               sql.NullInt64
	)
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT token_hash, user_id, created_at, expires_at, used_at
FROM verification_tokens WHERE `+where, arg).Scan(
		&token.TokenHash, &token.UserID, &createdAt, &expiresAt, &usedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.VerificationToken{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.VerificationToken{}, fmt.Errorf("get verification token: %w", err)
	}
	token.CreatedAt = sqlitedb.FromMillis(createdAt)
	token.ExpiresAt = sqlitedb.FromMillis(expiresAt)
	token.UsedAt = sqlitedb.FromNullMillis(usedAt)
	return token, nil
}

// UseVerificationToken marks an unused token used and verifies its user.
func (s *Store) UseVerificationToken(ctx context.Context, tokenHash string, usedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var userID string
	err = tx.QueryRowContext(ctx, `
UPDATE verification_tokens SET used_at = ?
WHERE token_hash = ? AND used_at IS NULL
RETURNING user_id`, sqlitedb.ToMillis(usedAt), tokenHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("use verification token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE users SET email_verified_at = COALESCE(email_verified_at, ?), updated_at = ?
WHERE id = ?`, sqlitedb.ToMillis(usedAt), sqlitedb.ToMillis(usedAt), userID); err != nil {
		return fmt.Errorf("verify user email: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (user.User, error) {
	var (
		u                    user.User
		phone                sql.NullString
		role                 string
		verifiedAt           sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(
		&u.ID, &u.Email, &phone, &u.DisplayName, &role, &u.BarangayID, &u.PasswordHash,
		&verifiedAt, &u.AvatarKey, &u.CoverKey, &u.BackgroundKey, &createdAt, &updatedAt,
	); err != nil {
		return user.User{}, err
	}
	u.Phone = phone.String
	u.Role = user.Role(role)
	u.EmailVerifiedAt = sqlitedb.FromNullMillis(verifiedAt)
	u.CreatedAt = sqlitedb.FromMillis(createdAt)
	u.UpdatedAt = sqlitedb.FromMillis(updatedAt)
	return u, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func expectOne(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
