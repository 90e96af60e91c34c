// Package sqlite stores users, TOTP factors and email verification tokens in
// SQLite.
package sqlite
