package domain

import (
	"regexp"
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/textnorm"
)

var barangayIDPattern = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)

// Barangay is a tenant.
type Barangay struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Municipality string    `json:"municipality" yaml:"municipality"`
	Province     string    `json:"province" yaml:"province"`
	Region       string    `json:"region,omitempty" yaml:"region"`
	CreatedAt    time.Time `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"-"`
}

// NormalizeBarangay validates a barangay record. IDs are slugs because they
// prefix object storage keys.
func NormalizeBarangay(b Barangay) (Barangay, error) {
	b.ID = strings.ToLower(strings.TrimSpace(b.ID))
	if !barangayIDPattern.MatchString(b.ID) {
		return Barangay{}, apperrors.InvalidArgument("barangay id must be a lowercase slug")
	}
	var err error
	if b.Name, err = required("name", b.Name); err != nil {
		return Barangay{}, err
	}
	b.Municipality = textnorm.Clean(b.Municipality)
	b.Province = textnorm.Clean(b.Province)
	b.Region = textnorm.Clean(b.Region)
	return b, nil
}
