package domain

import (
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
)

// Audience selects the recipients of an SMS alert.
type Audience string

const (
	AudienceResidents Audience = "all_residents"
	AudienceOfficials Audience = "officials"
	AudienceNumbers   Audience = "numbers"
)

// ParseAudience validates an audience; an empty value with explicit
// numbers means AudienceNumbers.
func ParseAudience(raw string, numbers []string) (Audience, error) {
	a := Audience(strings.ToLower(strings.TrimSpace(raw)))
	if a == "" && len(numbers) > 0 {
		return AudienceNumbers, nil
	}
	switch a {
	case AudienceResidents, AudienceOfficials:
		return a, nil
	case AudienceNumbers:
		if len(numbers) == 0 {
			return "", apperrors.InvalidArgument("numbers are required for this audience")
		}
		return a, nil
	}
	return "", apperrors.InvalidArgument("audience must be one of all_residents, officials, numbers")
}

// Alert is a recorded SMS broadcast.
type Alert struct {
	ID         string    `json:"id"`
	BarangayID string    `json:"barangay_id"`
	SentBy     string    `json:"sent_by"`
	Message    string    `json:"message"`
	Audience   Audience  `json:"audience"`
	Recipients int       `json:"recipients"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	CreatedAt  time.Time `json:"created_at"`
}

// AlertInput requests a broadcast.
type AlertInput struct {
	BarangayID string   `json:"barangay_id"`
	Message    string   `json:"message"`
	Audience   string   `json:"audience"`
	Numbers    []string `json:"numbers"`
}
