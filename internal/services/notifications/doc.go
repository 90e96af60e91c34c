// Package notifications owns per-user inbox state: creation with
// de-duplication, listing, unread counts and read acknowledgement.
package notifications
