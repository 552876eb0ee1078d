package sequence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// List limits for ListRuns.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Repository persists sequencer runs.
type Repository interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// SQLiteRepository stores runs in the sequence_runs table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveRun inserts a run or replaces the stored copy.
func (r *SQLiteRepository) SaveRun(ctx context.Context, run *Run) error {
	stagesJSON, err := json.Marshal(run.Stages)
	if err != nil {
		return fmt.Errorf("marshalling stage results: %w", err)
	}

	var completedAt, durationMS any
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.UTC().Format(time.RFC3339Nano)
		durationMS = run.Duration.Milliseconds()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO sequence_runs
		 (id, started_at, completed_at, status, trigger_source, stages_total, stages_completed, current_stage, stop_reason, stages, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   completed_at = excluded.completed_at,
		   status = excluded.status,
		   stages_completed = excluded.stages_completed,
		   current_stage = excluded.current_stage,
		   stop_reason = excluded.stop_reason,
		   stages = excluded.stages,
		   duration_ms = excluded.duration_ms`,
		run.ID, run.StartedAt.UTC().Format(time.RFC3339Nano), completedAt, string(run.Status),
		nullableString(run.Source), run.StagesTotal, run.StagesCompleted, run.CurrentStage,
		nullableString(run.StopReason), string(stagesJSON), durationMS,
	)
	if err != nil {
		return fmt.Errorf("saving sequence run: %w", err)
	}
	return nil
}

// GetRun returns the run with the given ID.
func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recently started runs first.
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := r.db.QueryContext(ctx, selectRuns+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sequence runs: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only query

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sequence runs: %w", err)
	}
	return runs, nil
}

const selectRuns = `SELECT id, started_at, completed_at, status, trigger_source, stages_total,
	stages_completed, current_stage, stop_reason, stages, duration_ms FROM sequence_runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*Run, error) {
	var (
		run                       Run
		startedAt, status         string
		completedAt, source, stop sql.NullString
		stagesJSON                sql.NullString
		durationMS                sql.NullInt64
	)
	err := s.Scan(&run.ID, &startedAt, &completedAt, &status, &source, &run.StagesTotal,
		&run.StagesCompleted, &run.CurrentStage, &stop, &stagesJSON, &durationMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning sequence run: %w", err)
	}

	run.Status = RunStatus(status)
	run.Source = source.String
	run.StopReason = stop.String
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if completedAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at: %w", err)
		}
		run.CompletedAt = &t
	}
	if durationMS.Valid {
		run.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	}
	if stagesJSON.Valid && stagesJSON.String != "" {
		if err := json.Unmarshal([]byte(stagesJSON.String), &run.Stages); err != nil {
			return nil, fmt.Errorf("unmarshalling stage results: %w", err)
		}
	}
	return &run, nil
}

// nullableString returns nil for empty strings so nullable TEXT columns stay NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
