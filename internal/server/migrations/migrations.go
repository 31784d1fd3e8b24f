// Package migrations embeds the goose SQL migrations that create the auth
// schema. The repository manager runs them once at startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
