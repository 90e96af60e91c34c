// Package activity records an append-only audit trail of user actions per
// barangay.
package activity
