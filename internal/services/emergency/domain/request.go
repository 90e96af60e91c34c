// Package domain defines emergency requests, SMS alerts and their rules.
package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/phone"
	"github.com/louisbranch/baranex/internal/platform/textnorm"
)

// Type is the nature of an emergency.
type Type string

const (
	TypeMedical  Type = "medical"
	TypeFire     Type = "fire"
	TypeFlood    Type = "flood"
	TypeCrime    Type = "crime"
	TypeAccident Type = "accident"
	TypeOther    Type = "other"
)

// Status is the response state of a request.
type Status string

const (
	StatusPending      Status = "pending"
	StatusAcknowledged Status = "acknowledged"
	StatusResponding   Status = "responding"
	StatusResolved     Status = "resolved"
	StatusCancelled    Status = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

var nextStatus = map[Status]Status{
	StatusPending:      StatusAcknowledged,
	StatusAcknowledged: StatusResponding,
	StatusResponding:   StatusResolved,
}

// CanTransition reports whether s may move to to.
func (s Status) CanTransition(to Status) bool {
	if s.Terminal() {
		return false
	}
	if to == StatusCancelled {
		return s == StatusPending || s == StatusAcknowledged
	}
	return nextStatus[s] == to
}

// ParseStatus validates a status value.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusAcknowledged, StatusResponding, StatusResolved, StatusCancelled:
		return s, nil
	}
	return "", apperrors.InvalidArgument("status must be one of pending, acknowledged, responding, resolved, cancelled")
}

// ParseType validates an emergency type.
func ParseType(raw string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(raw))); t {
	case TypeMedical, TypeFire, TypeFlood, TypeCrime, TypeAccident, TypeOther:
		return t, nil
	}
	return "", apperrors.InvalidArgument("type must be one of medical, fire, flood, crime, accident, other")
}

// ErrInvalidTransition is returned for a disallowed status change.
func ErrInvalidTransition(from, to Status) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidTransition,
		fmt.Sprintf("cannot change status from %s to %s", from, to),
		map[string]string{"from": string(from), "to": string(to)})
}

// Request is one emergency reported by a user.
type Request struct {
	ID              string     `json:"id"`
	BarangayID      string     `json:"barangay_id"`
	RequesterUserID string     `json:"requester_user_id"`
	Type            Type       `json:"type"`
	Description     string     `json:"description"`
	Location        string     `json:"location"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	ContactPhone    string     `json:"contact_phone,omitempty"`
	Status          Status     `json:"status"`
	ResponderUserID string     `json:"responder_user_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
}

// RequestInput reports an emergency.
type RequestInput struct {
	BarangayID   string   `json:"barangay_id"`
	Type         Type     `json:"type"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	ContactPhone string   `json:"contact_phone"`
}

// StatusInput moves a request to a new status.
type StatusInput struct {
	Status Status `json:"status"`
}

// NormalizeRequest validates in and fills r's reported fields.
func NormalizeRequest(r Request, in RequestInput) (Request, error) {
	var err error
	if r.Type, err = ParseType(string(in.Type)); err != nil {
		return Request{}, err
	}
	r.Description = textnorm.Clean(in.Description)
	if len([]rune(r.Description)) > 1000 {
		return Request{}, apperrors.InvalidArgument("description must be at most 1000 characters")
	}
	if r.Location = textnorm.Clean(in.Location); r.Location == "" {
		return Request{}, apperrors.InvalidArgument("location is required")
	}
	if len([]rune(r.Location)) > 300 {
		return Request{}, apperrors.InvalidArgument("location must be at most 300 characters")
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return Request{}, apperrors.InvalidArgument("latitude and longitude must be given together")
	}
	if in.Latitude != nil {
		if *in.Latitude < -90 || *in.Latitude > 90 {
			return Request{}, apperrors.InvalidArgument("latitude must be between -90 and 90")
		}
		if *in.Longitude < -180 || *in.Longitude > 180 {
			return Request{}, apperrors.InvalidArgument("longitude must be between -180 and 180")
		}
		lat, lng := *in.Latitude, *in.Longitude
		r.Latitude, r.Longitude = &lat, &lng
	}
	if raw := strings.TrimSpace(in.ContactPhone); raw != "" {
		if r.ContactPhone, err = phone.Normalize(raw); err != nil {
			return Request{}, apperrors.InvalidArgument("contact phone must be a Philippine mobile number")
		}
	}
	r.Status = StatusPending
	return r, nil
}

// ApplyStatus moves r to to as of now. responderID becomes the responder
// when an official takes the request on.
func ApplyStatus(r Request, to Status, responderID string, now time.Time) (Request, error) {
	if r.Status == to {
		return r, nil
	}
	if !r.Status.CanTransition(to) {
		return Request{}, ErrInvalidTransition(r.Status, to)
	}
	r.Status = to
	if (to == StatusAcknowledged || to == StatusResponding) && responderID != "" {
		r.ResponderUserID = responderID
	}
	if to == StatusResolved {
		at := now.UTC()
		r.ResolvedAt = &at
	}
	r.UpdatedAt = now.UTC()
	return r, nil
}
