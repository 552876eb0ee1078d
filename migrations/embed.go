// Package migrations embeds the SQL migration files into the binary so the
// controller can build its schema without the files on disk.
package migrations

import "embed"

// FS holds every migration file.
//
//go:embed *.sql
var FS embed.FS

// Dir is the directory within FS that holds the migrations.
const Dir = "."
