package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/textnorm"
)

// IncidentStatus is the state of a blotter case.
type IncidentStatus string

const (
	IncidentOpen           IncidentStatus = "open"
	IncidentUnderMediation IncidentStatus = "under_mediation"
	IncidentSettled        IncidentStatus = "settled"
	IncidentEscalated      IncidentStatus = "escalated"
	IncidentDismissed      IncidentStatus = "dismissed"
)

// Incident is a blotter entry.
type Incident struct {
	ID          string         `json:"id"`
	BarangayID  string         `json:"barangay_id"`
	CaseNumber  string         `json:"case_number"`
	Category    string         `json:"category"`
	Complainant string         `json:"complainant"`
	Respondent  string         `json:"respondent,omitempty"`
	Narrative   string         `json:"narrative"`
	Location    string         `json:"location,omitempty"`
	IncidentAt  time.Time      `json:"incident_at"`
	Status      IncidentStatus `json:"status"`
	ReportedBy  string         `json:"reported_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IncidentInput is the editable part of an incident.
type IncidentInput struct {
	BarangayID  string         `json:"barangay_id"`
	Category    string         `json:"category"`
	Complainant string         `json:"complainant"`
	Respondent  string         `json:"respondent"`
	Narrative   string         `json:"narrative"`
	Location    string         `json:"location"`
	IncidentAt  time.Time      `json:"incident_at"`
	Status      IncidentStatus `json:"status"`
}

// NormalizeIncident validates input as of now and applies it to i. Status
// defaults to open.
func NormalizeIncident(i Incident, in IncidentInput, now time.Time) (Incident, error) {
	var err error
	if i.Category, err = required("category", strings.ToLower(in.Category)); err != nil {
		return Incident{}, err
	}
	if i.Complainant, err = required("complainant", textnorm.Name(in.Complainant)); err != nil {
		return Incident{}, err
	}
	if i.Narrative, err = required("narrative", in.Narrative); err != nil {
		return Incident{}, err
	}
	if err := maxLen("narrative", i.Narrative, 5000); err != nil {
		return Incident{}, err
	}
	if in.IncidentAt.IsZero() {
		return Incident{}, apperrors.InvalidArgument("incident time is required")
	}
	if in.IncidentAt.After(now) {
		return Incident{}, apperrors.InvalidArgument("incident time cannot be in the future")
	}
	i.IncidentAt = in.IncidentAt.UTC()
	i.Respondent = textnorm.Name(in.Respondent)
	i.Location = textnorm.Clean(in.Location)
	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = i.Status
	}
	if status == "" {
		status = IncidentOpen
	}
	if i.Status, err = oneOf("status", status,
		IncidentOpen, IncidentUnderMediation, IncidentSettled, IncidentEscalated, IncidentDismissed); err != nil {
		return Incident{}, err
	}
	return i, nil
}

// CaseNumber formats a blotter case number.
func CaseNumber(year, seq int) string {
	return fmt.Sprintf("BLT-%d-%04d", year, seq)
}
