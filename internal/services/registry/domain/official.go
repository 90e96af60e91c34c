package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/textnorm"
	"github.com/louisbranch/baranex/internal/services/auth/user"
)

// Position is an elected or appointed barangay post.
type Position string

const (
	PositionPunongBarangay Position = "punong_barangay"
	PositionKagawad        Position = "kagawad"
	PositionSecretary      Position = "secretary"
	PositionTreasurer      Position = "treasurer"
	PositionSKChairperson  Position = "sk_chairperson"
	PositionTanod          Position = "tanod"
	PositionOther          Position = "other"
)

// Title is the display name of a position.
func (p Position) Title() string {
	switch p {
	case PositionPunongBarangay:
		return "Punong Barangay"
	case PositionKagawad:
		return "Barangay Kagawad"
	case PositionSecretary:
		return "Barangay Secretary"
	case PositionTreasurer:
		return "Barangay Treasurer"
	case PositionSKChairperson:
		return "SK Chairperson"
	case PositionTanod:
		return "Barangay Tanod"
	default:
		return "Barangay Official"
	}
}

// Official is a barangay officer.
type Official struct {
	ID           string    `json:"id"`
	BarangayID   string    `json:"barangay_id"`
	ResidentID   string    `json:"resident_id,omitempty"`
	Name         string    `json:"name"`
	Position     Position  `json:"position"`
	Committee    string    `json:"committee,omitempty"`
	TermStart    string    `json:"term_start,omitempty"`
	TermEnd      string    `json:"term_end,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	PhotoKey     string    `json:"photo_key,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OfficialInput is the editable part of an official.
type OfficialInput struct {
	BarangayID   string   `json:"barangay_id"`
	ResidentID   string   `json:"resident_id"`
	Name         string   `json:"name"`
	Position     Position `json:"position"`
	Committee    string   `json:"committee"`
	TermStart    string   `json:"term_start"`
	TermEnd      string   `json:"term_end"`
	ContactPhone string   `json:"contact_phone"`
	PhotoKey     string   `json:"photo_key"`
	Active       *bool    `json:"active"`
}

// NormalizeOfficial validates input and applies it to o. Active defaults to
// true on create.
func NormalizeOfficial(o Official, in OfficialInput) (Official, error) {
	var err error
	if o.Name, err = required("name", textnorm.Name(in.Name)); err != nil {
		return Official{}, err
	}
	if o.Position, err = oneOf("position", in.Position,
		PositionPunongBarangay, PositionKagawad, PositionSecretary, PositionTreasurer,
		PositionSKChairperson, PositionTanod, PositionOther); err != nil {
		return Official{}, err
	}
	start, hasStart, err := ParseDate("term start", in.TermStart)
	if err != nil {
		return Official{}, err
	}
	end, hasEnd, err := ParseDate("term end", in.TermEnd)
	if err != nil {
		return Official{}, err
	}
	if hasStart && hasEnd && !end.After(start) {
		return Official{}, apperrors.InvalidArgument("term end must be after term start")
	}
	o.TermStart, o.TermEnd = "", ""
	if hasStart {
		o.TermStart = start.Format(DateLayout)
	}
	if hasEnd {
		o.TermEnd = end.Format(DateLayout)
	}
	if o.ContactPhone, err = user.NormalizePhone(in.ContactPhone); err != nil {
		return Official{}, err
	}
	o.ResidentID = strings.TrimSpace(in.ResidentID)
	o.Committee = textnorm.Clean(in.Committee)
	o.PhotoKey = strings.TrimSpace(in.PhotoKey)
	switch {
	case in.Active != nil:
		o.Active = *in.Active
	case o.ID == "":
		o.Active = true
	}
	return o, nil
}
