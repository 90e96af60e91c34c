// Package dashboard aggregates per-barangay counts for the officials'
// overview screen.
package dashboard
