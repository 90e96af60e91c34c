// Package migrations contains embedded SQL migrations for the auth store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
