// Package registry owns the barangay records: residents, households,
// officials, document requests, the blotter and its watchlist, announcements
// and the community forum.
//
// domain holds entity types and validation, service applies role checks and
// emits realtime changes and activity entries, storage/sqlite persists
// records, and api/httpapi exposes REST endpoints under /api/v1.
package registry
