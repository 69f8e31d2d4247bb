// Package migrations embeds the goose SQL migrations for the activity log store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
