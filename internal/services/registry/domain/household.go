package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/textnorm"
)

// HouseholdRole is a member's relationship to the household head.
type HouseholdRole string

const (
	RoleHead        HouseholdRole = "head"
	RoleSpouse      HouseholdRole = "spouse"
	RoleChild       HouseholdRole = "child"
	RoleParent      HouseholdRole = "parent"
	RoleSibling     HouseholdRole = "sibling"
	RoleGrandchild  HouseholdRole = "grandchild"
	RoleGrandparent HouseholdRole = "grandparent"
	RoleRelative    HouseholdRole = "relative"
	RoleOther       HouseholdRole = "other"
)

// ParseHouseholdRole validates a household role name.
func ParseHouseholdRole(raw string) (HouseholdRole, error) {
	return oneOf("household role", HouseholdRole(raw),
		RoleHead, RoleSpouse, RoleChild, RoleParent, RoleSibling,
		RoleGrandchild, RoleGrandparent, RoleRelative, RoleOther)
}

// Household groups residents living together.
type Household struct {
	ID              string    `json:"id"`
	BarangayID      string    `json:"barangay_id"`
	HouseholdNumber string    `json:"household_number"`
	HeadResidentID  string    `json:"head_resident_id,omitempty"`
	Address         string    `json:"address,omitempty"`
	Purok           string    `json:"purok,omitempty"`
	MonthlyIncome   float64   `json:"monthly_income"`
	CreatedBy       string    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HouseholdInput is the editable part of a household.
type HouseholdInput struct {
	BarangayID      string  `json:"barangay_id"`
	HouseholdNumber string  `json:"household_number"`
	HeadResidentID  string  `json:"head_resident_id"`
	Address         string  `json:"address"`
	Purok           string  `json:"purok"`
	MonthlyIncome   float64 `json:"monthly_income"`
}

// NormalizeHousehold validates input and applies it to h.
func NormalizeHousehold(h Household, in HouseholdInput) (Household, error) {
	var err error
	if h.HouseholdNumber, err = required("household number", strings.ToUpper(in.HouseholdNumber)); err != nil {
		return Household{}, err
	}
	if err := maxLen("household number", h.HouseholdNumber, 32); err != nil {
		return Household{}, err
	}
	if err := nonNegative("monthly income", in.MonthlyIncome); err != nil {
		return Household{}, err
	}
	h.HeadResidentID = strings.TrimSpace(in.HeadResidentID)
	h.Address = textnorm.Clean(in.Address)
	h.Purok = textnorm.Clean(in.Purok)
	h.MonthlyIncome = in.MonthlyIncome
	return h, nil
}

// Member is a resident shown within their household.
type Member struct {
	Resident
	Relationship string `json:"relationship"`
}

// Members labels residents relative to the household head. The head is
// listed first.
func Members(h Household, residents []Resident) []Member {
	out := make([]Member, 0, len(residents))
	for _, r := range residents {
		role := r.HouseholdRole
		if r.ID == h.HeadResidentID {
			role = RoleHead
		}
		m := Member{Resident: r, Relationship: RelationshipLabel(role, r.Gender)}
		if role == RoleHead {
			out = append([]Member{m}, out...)
			continue
		}
		out = append(out, m)
	}
	return out
}

type relationshipKey struct {
	role   HouseholdRole
	gender Gender
}

var relationshipLabels = map[relationshipKey]string{
	{RoleHead, GenderMale}:          "Head of Household",
	{RoleHead, GenderFemale}:        "Head of Household",
	{RoleHead, GenderOther}:         "Head of Household",
	{RoleSpouse, GenderMale}:        "Husband",
	{RoleSpouse, GenderFemale}:      "Wife",
	{RoleSpouse, GenderOther}:       "Spouse",
	{RoleChild, GenderMale}:         "Son",
	{RoleChild, GenderFemale}:       "Daughter",
	{RoleChild, GenderOther}:        "Child",
	{RoleParent, GenderMale}:        "Father",
	{RoleParent, GenderFemale}:      "Mother",
	{RoleParent, GenderOther}:       "Parent",
	{RoleSibling, GenderMale}:       "Brother",
	{RoleSibling, GenderFemale}:     "Sister",
	{RoleSibling, GenderOther}:      "Sibling",
	{RoleGrandchild, GenderMale}:    "Grandson",
	{RoleGrandchild, GenderFemale}:  "Granddaughter",
	{RoleGrandchild, GenderOther}:   "Grandchild",
	{RoleGrandparent, GenderMale}:   "Grandfather",
	{RoleGrandparent, GenderFemale}: "Grandmother",
	{RoleGrandparent, GenderOther}:  "Grandparent",
	{RoleRelative, GenderMale}:      "Relative",
	{RoleRelative, GenderFemale}:    "Relative",
	{RoleRelative, GenderOther}:     "Relative",
	{RoleOther, GenderMale}:         "Household Member",
	{RoleOther, GenderFemale}:       "Household Member",
	{RoleOther, GenderOther}:        "Household Member",
}

// RelationshipLabel names a household role for display. Unknown genders use
// the neutral label; unknown roles are plain household members.
func RelationshipLabel(role HouseholdRole, gender Gender) string {
	if gender != GenderMale && gender != GenderFemale {
		gender = GenderOther
	}
	if label, ok := relationshipLabels[relationshipKey{role, gender}]; ok {
		return label
	}
	return "Household Member"
}

// ErrHouseholdHeadMismatch is returned when the head is not a member.
var ErrHouseholdHeadMismatch = apperrors.InvalidArgument("household head must be a resident of the same barangay")
