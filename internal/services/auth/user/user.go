package user

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/id"
	"github.com/louisbranch/baranex/internal/platform/phone"
	"github.com/louisbranch/baranex/internal/platform/textnorm"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

var (
	// ErrEmptyEmail indicates a missing email.
	ErrEmptyEmail = apperrors.InvalidArgument("email is required")
	// ErrInvalidEmail indicates a malformed email.
	ErrInvalidEmail = apperrors.InvalidArgument("email is invalid")
	// ErrWeakPassword indicates a password below the minimum length.
	ErrWeakPassword = apperrors.InvalidArgument(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	// ErrEmptyDisplayName indicates a missing display name.
	ErrEmptyDisplayName = apperrors.InvalidArgument("display name is required")
	// ErrInvalidPhone indicates a phone that is not a PH mobile number.
	ErrInvalidPhone = apperrors.InvalidArgument("phone must be a Philippine mobile number")
	// ErrEmptyBarangay indicates a missing barangay.
	ErrEmptyBarangay = apperrors.InvalidArgument("barangay is required")
)

// Role is a user's authority level within a barangay.
type Role string

const (
	RoleResident   Role = "resident"
	RoleOfficial   Role = "official"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

// Level orders roles; unknown roles rank below resident.
func (r Role) Level() int {
	switch r {
	case RoleResident:
		return 1
	case RoleOfficial:
		return 2
	case RoleAdmin:
		return 3
	case RoleSuperadmin:
		return 4
	default:
		return 0
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r.Level() > 0
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r.Level() >= min.Level()
}

// ParseRole validates a role name.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", apperrors.InvalidArgument(fmt.Sprintf("unknown role %q", raw))
	}
	return role, nil
}

// User represents an authenticated identity record.
type User struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	DisplayName     string     `json:"display_name"`
	Role            Role       `json:"role"`
	BarangayID      string     `json:"barangay_id"`
	PasswordHash    string     `json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	AvatarKey       string     `json:"avatar_key,omitempty"`
	CoverKey        string     `json:"cover_key,omitempty"`
	BackgroundKey   string     `json:"background_key,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Verified reports whether the user confirmed their email.
func (u User) Verified() bool {
	return u.EmailVerifiedAt != nil
}

// CreateUserInput describes the metadata needed to create a user.
type CreateUserInput struct {
	Email       string
	Password    string
	DisplayName string
	Phone       string
	BarangayID  string
	Role        Role
}

// NormalizeEmail lower-cases and validates an email address.
func NormalizeEmail(raw string) (string, error) {
	email := textnorm.Email(raw)
	if email == "" {
		return "", ErrEmptyEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@")+1:], ".") {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// NormalizePhone converts an optional phone to E.164; empty stays empty.
func NormalizePhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	normalized, err := phone.Normalize(raw)
	if err != nil {
		return "", ErrInvalidPhone
	}
	return normalized, nil
}

// NormalizeCreateUserInput trims and validates sign-up input. The password is
// checked for length but left untouched.
func NormalizeCreateUserInput(input CreateUserInput) (CreateUserInput, error) {
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return CreateUserInput{}, err
	}
	input.Email = email
	if len(input.Password) < MinPasswordLength {
		return CreateUserInput{}, ErrWeakPassword
	}
	input.DisplayName = textnorm.Clean(input.DisplayName)
	if input.DisplayName == "" {
		return CreateUserInput{}, ErrEmptyDisplayName
	}
	if input.Phone, err = NormalizePhone(input.Phone); err != nil {
		return CreateUserInput{}, err
	}
	input.BarangayID = strings.TrimSpace(input.BarangayID)
	if input.BarangayID == "" {
		return CreateUserInput{}, ErrEmptyBarangay
	}
	if input.Role == "" {
		input.Role = RoleResident
	}
	if !input.Role.Valid() {
		return CreateUserInput{}, apperrors.InvalidArgument("role is invalid")
	}
	return input, nil
}

// CreateUser builds a user from validated input and a precomputed password
// hash.
func CreateUser(input CreateUserInput, passwordHash string, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	normalized, err := NormalizeCreateUserInput(input)
	if err != nil {
		return User{}, err
	}
	userID, err := idGenerator()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}
	createdAt := now().UTC()
	return User{
		ID:           userID,
		Email:        normalized.Email,
		Phone:        normalized.Phone,
		DisplayName:  normalized.DisplayName,
		Role:         normalized.Role,
		BarangayID:   normalized.BarangayID,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}, nil
}
