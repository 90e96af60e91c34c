package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/baranex/internal/platform/errors"
	"github.com/louisbranch/baranex/internal/platform/textnorm"
)

// DocumentType is a certificate a resident can request.
type DocumentType string

const (
	DocClearance   DocumentType = "barangay_clearance"
	DocResidency   DocumentType = "certificate_of_residency"
	DocIndigency   DocumentType = "certificate_of_indigency"
	DocBusiness    DocumentType = "business_clearance"
	DocOtherRecord DocumentType = "other"
)

// DocumentStatus is the processing state of a request.
type DocumentStatus string

const (
	DocPending    DocumentStatus = "pending"
	DocProcessing DocumentStatus = "processing"
	DocReady      DocumentStatus = "ready"
	DocReleased   DocumentStatus = "released"
	DocRejected   DocumentStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s DocumentStatus) Terminal() bool {
	return s == DocReleased || s == DocRejected
}

var documentNext = map[DocumentStatus]DocumentStatus{
	DocPending:    DocProcessing,
	DocProcessing: DocReady,
	DocReady:      DocReleased,
}

// CanTransition reports whether from may move to to.
func (s DocumentStatus) CanTransition(to DocumentStatus) bool {
	if s.Terminal() {
		return false
	}
	return to == DocRejected || documentNext[s] == to
}

// ErrInvalidTransition is returned for a disallowed status change.
func ErrInvalidTransition(from, to string) error {
	return apperrors.WithMetadata(apperrors.CodeInvalidTransition,
		fmt.Sprintf("cannot change status from %s to %s", from, to),
		map[string]string{"from": from, "to": to})
}

// Document is a certificate request.
type Document struct {
	ID            string         `json:"id"`
	BarangayID    string         `json:"barangay_id"`
	ResidentID    string         `json:"resident_id"`
	RequestedBy   string         `json:"requested_by"`
	Type          DocumentType   `json:"type"`
	Purpose       string         `json:"purpose"`
	Status        DocumentStatus `json:"status"`
	ControlNumber string         `json:"control_number"`
	Fee           float64        `json:"fee"`
	Remarks       string         `json:"remarks,omitempty"`
	ReleasedAt    *time.Time     `json:"released_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// DocumentInput creates a request.
type DocumentInput struct {
	BarangayID string       `json:"barangay_id"`
	ResidentID string       `json:"resident_id"`
	Type       DocumentType `json:"type"`
	Purpose    string       `json:"purpose"`
	Fee        float64      `json:"fee"`
}

// DocumentUpdate changes a request. Empty or omitted fields keep their
// current values.
type DocumentUpdate struct {
	Purpose string         `json:"purpose"`
	Fee     *float64       `json:"fee"`
	Status  DocumentStatus `json:"status"`
	Remarks *string        `json:"remarks"`
}

// NormalizeDocument validates a new request.
func NormalizeDocument(d Document, in DocumentInput) (Document, error) {
	var err error
	if d.ResidentID, err = required("resident id", in.ResidentID); err != nil {
		return Document{}, err
	}
	if d.Type, err = ParseDocumentType(string(in.Type)); err != nil {
		return Document{}, err
	}
	if d.Purpose, err = required("purpose", in.Purpose); err != nil {
		return Document{}, err
	}
	if err := maxLen("purpose", d.Purpose, 500); err != nil {
		return Document{}, err
	}
	if err := nonNegative("fee", in.Fee); err != nil {
		return Document{}, err
	}
	d.Fee = in.Fee
	d.Status = DocPending
	return d, nil
}

// ApplyDocumentUpdate validates an update as of now and applies it to d.
func ApplyDocumentUpdate(d Document, in DocumentUpdate, now time.Time) (Document, error) {
	if strings.TrimSpace(in.Purpose) != "" {
		d.Purpose = textnorm.Clean(in.Purpose)
		if err := maxLen("purpose", d.Purpose, 500); err != nil {
			return Document{}, err
		}
	}
	if in.Fee != nil {
		if err := nonNegative("fee", *in.Fee); err != nil {
			return Document{}, err
		}
		d.Fee = *in.Fee
	}
	if in.Remarks != nil {
		d.Remarks = textnorm.Clean(*in.Remarks)
	}
	if strings.TrimSpace(string(in.Status)) == "" || DocumentStatus(strings.ToLower(string(in.Status))) == d.Status {
		return d, nil
	}
	to, err := oneOf("status", in.Status, DocPending, DocProcessing, DocReady, DocReleased, DocRejected)
	if err != nil {
		return Document{}, err
	}
	if !d.Status.CanTransition(to) {
		return Document{}, ErrInvalidTransition(string(d.Status), string(to))
	}
	d.Status = to
	if to == DocReleased {
		at := now.UTC()
		d.ReleasedAt = &at
	}
	return d, nil
}

// ParseDocumentType validates a document type.
func ParseDocumentType(raw string) (DocumentType, error) {
	return oneOf("document type", DocumentType(raw), DocClearance, DocResidency, DocIndigency, DocBusiness, DocOtherRecord)
}

// ControlNumber formats a control number from a year and a 0..999999 serial.
func ControlNumber(year, serial int) string {
	return fmt.Sprintf("%d-%06d", year, serial%1000000)
}

// DocumentTypeInfo describes a requestable document.
type DocumentTypeInfo struct {
	Type         DocumentType `json:"type"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Requirements []string     `json:"requirements"`
}

// DocumentCatalog lists the requestable documents.
var DocumentCatalog = []DocumentTypeInfo{
	{
		Type:         DocClearance,
		Name:         "Barangay Clearance",
		Description:  "Certifies that the resident has no derogatory record in the barangay. Commonly required for employment, loans and permits.",
		Requirements: []string{"Valid government ID", "Proof of residency", "Community tax certificate (cedula)"},
	},
	{
		Type:         DocResidency,
		Name:         "Certificate of Residency",
		Description:  "Certifies that the resident lives in the barangay and for how long.",
		Requirements: []string{"Valid government ID", "Proof of address such as a utility bill"},
	},
	{
		Type:         DocIndigency,
		Name:         "Certificate of Indigency",
		Description:  "Certifies that the resident belongs to a low-income household, for medical, legal or scholarship assistance.",
		Requirements: []string{"Valid government ID", "Statement of purpose"},
	},
	{
		Type:         DocBusiness,
		Name:         "Barangay Business Clearance",
		Description:  "Required before the municipality issues or renews a business permit for an establishment within the barangay.",
		Requirements: []string{"DTI or SEC registration", "Lease contract or proof of ownership", "Previous permit for renewals"},
	},
	{
		Type:         DocOtherRecord,
		Name:         "Other Certification",
		Description:  "Any other certification issued by the barangay secretary on request.",
		Requirements: []string{"Valid government ID", "Statement of purpose"},
	},
}
