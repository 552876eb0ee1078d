// Package database provides SQLite connectivity for the controller.
//
// This package manages:
//   - Database connection with WAL mode and a single writer
//   - Embedded schema migrations tracked in schema_migrations
//   - Health checks
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive: each .up.sql has a matching .down.sql and new
// columns are nullable or defaulted.
package database
