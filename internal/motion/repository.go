package motion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// List limits for ListOutcomes.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// Repository persists closed-window outcomes.
type Repository interface {
	SaveOutcome(ctx context.Context, o *Outcome) error
	GetOutcome(ctx context.Context, id string) (*Outcome, error)
	ListOutcomes(ctx context.Context, limit int) ([]Outcome, error)
}

// SQLiteRepository stores outcomes in the motion_outcomes table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveOutcome inserts or replaces an outcome keyed by its window id.
func (r *SQLiteRepository) SaveOutcome(ctx context.Context, o *Outcome) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO motion_outcomes
		 (id, decision, avg_roll, avg_pitch, message_count, rejected_count, threshold, duration_ms, opened_at, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, string(o.Decision), o.AvgRoll, o.AvgPitch, o.Count, o.Rejected,
		o.Threshold, o.Duration.Milliseconds(),
		o.OpenedAt.UTC().Format(time.RFC3339Nano),
		o.ClosedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting motion outcome: %w", err)
	}
	return nil
}

// GetOutcome returns the outcome with the given window id.
func (r *SQLiteRepository) GetOutcome(ctx context.Context, id string) (*Outcome, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, decision, avg_roll, avg_pitch, message_count, rejected_count, threshold, duration_ms, opened_at, closed_at
		 FROM motion_outcomes WHERE id = ?`, id)

	o, err := scanOutcome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOutcomeNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListOutcomes returns the most recently closed outcomes first.
func (r *SQLiteRepository) ListOutcomes(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, decision, avg_roll, avg_pitch, message_count, rejected_count, threshold, duration_ms, opened_at, closed_at
		 FROM motion_outcomes ORDER BY closed_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying motion outcomes: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var out []Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating motion outcomes: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOutcome(s rowScanner) (*Outcome, error) {
	var (
		o                  Outcome
		decision           string
		durationMS         int64
		openedAt, closedAt string
	)
	err := s.Scan(&o.ID, &decision, &o.AvgRoll, &o.AvgPitch, &o.Count, &o.Rejected,
		&o.Threshold, &durationMS, &openedAt, &closedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning motion outcome: %w", err)
	}

	o.Decision = Decision(decision)
	o.Duration = time.Duration(durationMS) * time.Millisecond
	if o.OpenedAt, err = time.Parse(time.RFC3339Nano, openedAt); err != nil {
		return nil, fmt.Errorf("parsing opened_at: %w", err)
	}
	if o.ClosedAt, err = time.Parse(time.RFC3339Nano, closedAt); err != nil {
		return nil, fmt.Errorf("parsing closed_at: %w", err)
	}
	return &o, nil
}
