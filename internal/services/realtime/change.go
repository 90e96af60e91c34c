package realtime

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/louisbranch/baranex/internal/services/auth/user"
)

// ChangeType is the kind of mutation a change describes.
type ChangeType string

const (
	Insert ChangeType = "INSERT"
	Update ChangeType = "UPDATE"
	Delete ChangeType = "DELETE"
)

// Change is one committed row mutation.
type Change struct {
	ID              string          `json:"id"`
	Table           string          `json:"table"`
	Type            ChangeType      `json:"type"`
	BarangayID      string          `json:"barangay_id,omitempty"`
	RecipientUserID string          `json:"recipient_user_id,omitempty"`
	// MinRole is the lowest role that may read the record; empty means any.
	MinRole         string          `json:"min_role,omitempty"`
	// OwnerUserID reads the record regardless of MinRole.
	OwnerUserID     string          `json:"owner_user_id,omitempty"`
	Record          json.RawMessage `json:"record,omitempty"`
	At              time.Time       `json:"at"`
}

// NewChange builds a change carrying record encoded as JSON. A record that
// cannot be encoded is sent without a body.
func NewChange(table string, kind ChangeType, barangayID string, record any) Change {
	change := Change{Table: table, Type: kind, BarangayID: barangayID}
	if record != nil {
		if data, err := json.Marshal(record); err == nil {
			change.Record = data
		}
	}
	return change
}

// Restrict limits delivery to minRole and above, plus ownerUserID when set.
func (c Change) Restrict(minRole, ownerUserID string) Change {
	c.MinRole = minRole
	c.OwnerUserID = ownerUserID
	return c
}

// Filter selects the changes a subscriber receives.
type Filter struct {
	// Tables limits delivery to the named tables; empty means all.
	Tables map[string]bool
	// BarangayID limits delivery to one barangay; empty means all.
	BarangayID string
	// UserID receives changes addressed to it.
	UserID string
	// Role is checked against each change's MinRole; empty skips the check
	// and is reserved for in-process subscribers.
	Role string
}

// ParseTables splits a comma-separated table list.
func ParseTables(raw string) map[string]bool {
	tables := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			tables[name] = true
		}
	}
	return tables
}

// Matches reports whether c should be delivered under f.
func (f Filter) Matches(c Change) bool {
	if len(f.Tables) > 0 && !f.Tables[c.Table] {
		return false
	}
	if c.RecipientUserID != "" {
		return f.UserID != "" && c.RecipientUserID == f.UserID
	}
	if f.BarangayID != "" && c.BarangayID != f.BarangayID {
		return false
	}
	if c.MinRole != "" && f.Role != "" && !user.Role(f.Role).AtLeast(user.Role(c.MinRole)) {
		return c.OwnerUserID != "" && c.OwnerUserID == f.UserID
	}
	return true
}
