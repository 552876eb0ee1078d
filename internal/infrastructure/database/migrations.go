package database

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// ErrMigrationModified is returned when an applied migration's up SQL no
// longer matches the checksum recorded when it ran.
var ErrMigrationModified = errors.New("applied migration was modified")

// Migration is one versioned schema change. Files are named
// YYYYMMDD_HHMMSS_description.up.sql with an optional .down.sql partner.
type Migration struct {
	Version  string // e.g. 20261001_120000
	Name     string
	UpSQL    string
	DownSQL  string
	Checksum string // sha256 of UpSQL
}

// MigrationRecord is a row of schema_migrations.
type MigrationRecord struct {
	Version   string
	Checksum  string
	AppliedAt time.Time
}

const schemaMigrationsDDL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	checksum   TEXT NOT NULL DEFAULT '',
	applied_at TEXT NOT NULL
)`

// Migrate applies pending migrations from dir of fsys, oldest first, each
// in its own transaction. On failure the earlier ones stay committed and a
// rerun continues from the failed one.
func (db *DB) Migrate(ctx context.Context, fsys fs.FS, dir string) error {
	_, pending, err := db.MigrationStatus(ctx, fsys, dir)
	if err != nil {
		return err
	}
	for _, m := range pending {
		err := db.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
				return fmt.Errorf("executing SQL: %w", err)
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, checksum, applied_at) VALUES (?, ?, ?)",
				m.Version, m.Checksum, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown reverts the most recently applied migration. It is a no-op
// when nothing has been applied.
func (db *DB) MigrateDown(ctx context.Context, fsys fs.FS, dir string) error {
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}
	latest := applied[len(applied)-1].Version

	all, err := LoadMigrations(fsys, dir)
	if err != nil {
		return err
	}
	idx := sort.Search(len(all), func(i int) bool { return all[i].Version >= latest })
	if idx == len(all) || all[idx].Version != latest {
		return fmt.Errorf("migration %s not found in filesystem", latest)
	}
	m := all[idx]
	if m.DownSQL == "" {
		return fmt.Errorf("migration %s has no down SQL", latest)
	}

	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			return fmt.Errorf("executing down SQL for %s: %w", m.Version, err)
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", m.Version)
		return err
	})
}

// MigrationStatus returns the applied records and the migrations of fsys
// not yet applied. It fails with ErrMigrationModified if an applied file
// has changed since it ran.
func (db *DB) MigrationStatus(ctx context.Context, fsys fs.FS, dir string) (applied []MigrationRecord, pending []Migration, err error) {
	applied, err = db.appliedMigrations(ctx)
	if err != nil {
		return nil, nil, err
	}
	all, err := LoadMigrations(fsys, dir)
	if err != nil {
		return nil, nil, err
	}

	sums := make(map[string]string, len(applied))
	for _, r := range applied {
		sums[r.Version] = r.Checksum
	}
	for _, m := range all {
		sum, done := sums[m.Version]
		switch {
		case !done:
			pending = append(pending, m)
		case sum != "" && sum != m.Checksum:
			return nil, nil, fmt.Errorf("%w: %s (%s)", ErrMigrationModified, m.Version, m.Name)
		}
	}
	return applied, pending, nil
}

func (db *DB) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *DB) appliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	if _, err := db.ExecContext(ctx, schemaMigrationsDDL); err != nil {
		return nil, fmt.Errorf("creating migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		"SELECT version, checksum, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	var out []MigrationRecord
	for rows.Next() {
		var r MigrationRecord
		var at string
		if err := rows.Scan(&r.Version, &r.Checksum, &at); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		r.AppliedAt, _ = time.Parse(time.RFC3339, at) //nolint:errcheck // written by Migrate
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadMigrations reads the migrations in dir of fsys, sorted by version.
// Files not following the naming format are skipped. A nil fsys has none.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	if fsys == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("loading migrations from %s: %w", dir, err)
	}

	byVersion := make(map[string]*Migration)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, ok := parseMigrationFile(e.Name())
		if !ok {
			continue
		}
		body, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}

		m := byVersion[f.version]
		if m == nil {
			m = &Migration{Version: f.version}
			byVersion[f.version] = m
		}
		if f.up {
			m.Name = f.name
			m.UpSQL = string(body)
			sum := sha256.Sum256(body)
			m.Checksum = hex.EncodeToString(sum[:])
		} else {
			m.DownSQL = string(body)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		// A down file without its up file is not a migration.
		if m.UpSQL != "" {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

type migrationFile struct {
	version string
	name    string
	up      bool
}

// parseMigrationFile splits "20261001_120000_sequence_runs.up.sql" into
// version 20261001_120000, name sequence_runs and direction up.
func parseMigrationFile(filename string) (migrationFile, bool) {
	base, ok := strings.CutSuffix(filename, ".sql")
	if !ok {
		return migrationFile{}, false
	}

	var f migrationFile
	if b, up := strings.CutSuffix(base, ".up"); up {
		f.up, base = true, b
	} else if b, down := strings.CutSuffix(base, ".down"); down {
		base = b
	} else {
		return migrationFile{}, false
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 2 {
		return migrationFile{}, false
	}
	f.version = parts[0] + "_" + parts[1]
	f.name = base
	if len(parts) == 3 {
		f.name = parts[2]
	}
	return f, true
}
