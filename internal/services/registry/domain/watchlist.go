package domain

import (
	"strings"
	"time"

	"github.com/louisbranch/baranex/internal/platform/textnorm"
)

// WatchlistEntry flags a person of interest.
type WatchlistEntry struct {
	ID         string    `json:"id"`
	BarangayID string    `json:"barangay_id"`
	Name       string    `json:"name"`
	Alias      string    `json:"alias,omitempty"`
	Reason     string    `json:"reason"`
	IncidentID string    `json:"incident_id,omitempty"`
	Active     bool      `json:"active"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WatchlistInput is the editable part of an entry.
type WatchlistInput struct {
	BarangayID string `json:"barangay_id"`
	Name       string `json:"name"`
	Alias      string `json:"alias"`
	Reason     string `json:"reason"`
	IncidentID string `json:"incident_id"`
	Active     *bool  `json:"active"`
}

// NormalizeWatchlist validates input and applies it to w.
func NormalizeWatchlist(w WatchlistEntry, in WatchlistInput) (WatchlistEntry, error) {
	var err error
	if w.Name, err = required("name", textnorm.Name(in.Name)); err != nil {
		return WatchlistEntry{}, err
	}
	if w.Reason, err = required("reason", in.Reason); err != nil {
		return WatchlistEntry{}, err
	}
	if err := maxLen("reason", w.Reason, 2000); err != nil {
		return WatchlistEntry{}, err
	}
	w.Alias = textnorm.Clean(in.Alias)
	w.IncidentID = strings.TrimSpace(in.IncidentID)
	switch {
	case in.Active != nil:
		w.Active = *in.Active
	case w.ID == "":
		w.Active = true
	}
	return w, nil
}
