package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/textnorm"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

// Gender is a resident's recorded gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// CivilStatus is a resident's marital status.
type CivilStatus string

const (
	CivilSingle    CivilStatus = "single"
	CivilMarried   CivilStatus = "married"
	CivilWidowed   CivilStatus = "widowed"
	CivilSeparated CivilStatus = "separated"
	CivilAnnulled  CivilStatus = "annulled"
)

// Resident is a person registered in a barangay.
type Resident struct {
	ID            string        `json:"id"`
	BarangayID    string        `json:"barangay_id"`
	FirstName     string        `json:"first_name"`
	MiddleName    string        `json:"middle_name,omitempty"`
	LastName      string        `json:"last_name"`
	Suffix        string        `json:"suffix,omitempty"`
	Gender        Gender        `json:"gender"`
	Birthdate     string        `json:"birthdate,omitempty"`
	CivilStatus   CivilStatus   `json:"civil_status,omitempty"`
	Occupation    string        `json:"occupation,omitempty"`
	Phone         string        `json:"phone,omitempty"`
	Email         string        `json:"email,omitempty"`
	Address       string        `json:"address,omitempty"`
	Purok         string        `json:"purok,omitempty"`
	Voter         bool          `json:"is_voter"`
	PWD           bool          `json:"is_pwd"`
	HouseholdID   string        `json:"household_id,omitempty"`
	HouseholdRole HouseholdRole `json:"household_role,omitempty"`
	AvatarKey     string        `json:"avatar_key,omitempty"`
	IDScanKey     string        `json:"id_scan_key,omitempty"`
	CreatedBy     string        `json:"created_by,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// FullName joins the name parts.
func (r Resident) FullName() string {
	parts := []string{r.FirstName, r.MiddleName, r.LastName, r.Suffix}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}

// ResidentInput is the editable part of a resident.
type ResidentInput struct {
	BarangayID    string        `json:"barangay_id"`
	FirstName     string        `json:"first_name"`
	MiddleName    string        `json:"middle_name"`
	LastName      string        `json:"last_name"`
	Suffix        string        `json:"suffix"`
	Gender        Gender        `json:"gender"`
	Birthdate     string        `json:"birthdate"`
	CivilStatus   CivilStatus   `json:"civil_status"`
	Occupation    string        `json:"occupation"`
	Phone         string        `json:"phone"`
	Email         string        `json:"email"`
	Address       string        `json:"address"`
	Purok         string        `json:"purok"`
	Voter         bool          `json:"is_voter"`
	PWD           bool          `json:"is_pwd"`
	HouseholdID   string        `json:"household_id"`
	HouseholdRole HouseholdRole `json:"household_role"`
}

// NormalizeResident validates input as of now and applies it to r.
func NormalizeResident(r Resident, in ResidentInput, now time.Time) (Resident, error) {
	var err error
	if r.FirstName, err = required("first name", textnorm.Name(in.FirstName)); err != nil {
		return Resident{}, err
	}
	if r.LastName, err = required("last name", textnorm.Name(in.LastName)); err != nil {
		return Resident{}, err
	}
	r.MiddleName = textnorm.Name(in.MiddleName)
	r.Suffix = textnorm.Clean(in.Suffix)
	for field, value := range map[string]string{"first name": r.FirstName, "last name": r.LastName, "middle name": r.MiddleName} {
		if err := maxLen(field, value, 100); err != nil {
			return Resident{}, err
		}
	}
	if r.Gender, err = oneOf("gender", in.Gender, GenderMale, GenderFemale, GenderOther); err != nil {
		return Resident{}, err
	}

	birth, ok, err := ParseDate("birthdate", in.Birthdate)
	if err != nil {
		return Resident{}, err
	}
	r.Birthdate = ""
	if ok {
		today := now.UTC().Truncate(24 * time.Hour)
		if birth.After(today) {
			return Resident{}, apperrors.InvalidArgument("birthdate cannot be in the future")
		}
		if birth.Before(today.AddDate(-MaxAge, 0, 0)) {
			return Resident{}, apperrors.InvalidArgument("birthdate is too far in the past")
		}
		r.Birthdate = birth.Format(DateLayout)
	}

	r.CivilStatus = ""
	if strings.TrimSpace(string(in.CivilStatus)) != "" {
		if r.CivilStatus, err = oneOf("civil status", in.CivilStatus,
			CivilSingle, CivilMarried, CivilWidowed, CivilSeparated, CivilAnnulled); err != nil {
			return Resident{}, err
		}
	}
	r.Occupation = textnorm.Clean(in.Occupation)
	if r.Phone, err = user.NormalizePhone(in.Phone); err != nil {
		return Resident{}, err
	}
	r.Email = ""
	if strings.TrimSpace(in.Email) != "" {
		if r.Email, err = user.NormalizeEmail(in.Email); err != nil {
			return Resident{}, err
		}
	}
	r.Address = textnorm.Clean(in.Address)
	r.Purok = textnorm.Clean(in.Purok)
	r.Voter = in.Voter
	r.PWD = in.PWD

	r.HouseholdID = strings.TrimSpace(in.HouseholdID)
	r.HouseholdRole = ""
	if r.HouseholdID != "" {
		role := in.HouseholdRole
		if strings.TrimSpace(string(role)) == "" {
			role = RoleOther
		}
		if r.HouseholdRole, err = ParseHouseholdRole(string(role)); err != nil {
			return Resident{}, err
		}
	} else if strings.TrimSpace(string(in.HouseholdRole)) != "" {
		return Resident{}, apperrors.InvalidArgument("household role requires a household")
	}
	return r, nil
}

// Age returns whole years between birthdate and now, or -1 when unknown.
func (r Resident) Age(now time.Time) int {
	birth, ok, err := ParseDate("birthdate", r.Birthdate)
	if err != nil || !ok {
		return -1
	}
	now = now.UTC()
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}
