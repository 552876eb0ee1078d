// Package audit keeps the trail of operator overrides made through the
// API: who started, stopped or steered the experience, and whether the
// engine accepted it.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// List limits.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ErrInvalidAction is returned when an entry has no action or source.
var ErrInvalidAction = errors.New("audit: action and source are required")

// Action is one recorded operator request.
type Action struct {
	ID      string         `json:"id"`
	Action  string         `json:"action"`
	Target  string         `json:"target,omitempty"`
	Subject string         `json:"subject,omitempty"`
	Source  string         `json:"source"`
	Status  int            `json:"status"`
	Details map[string]any `json:"details,omitempty"`
	At      time.Time      `json:"at"`
}

// Filter controls which actions List returns.
type Filter struct {
	Action  string // optional, exact match
	Subject string // optional, exact match
	Limit   int    // default 50, max 200
	Offset  int
}

// ListResult is one page of actions, newest first.
type ListResult struct {
	Actions []Action `json:"actions"`
	Total   int      `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

// Repository stores operator actions.
type Repository interface {
	Record(ctx context.Context, a *Action) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores actions in the operator_actions table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts a. ID and At are filled in when empty.
func (r *SQLiteRepository) Record(ctx context.Context, a *Action) error {
	if strings.TrimSpace(a.Action) == "" || strings.TrimSpace(a.Source) == "" {
		return ErrInvalidAction
	}
	if a.ID == "" {
		a.ID = "act-" + uuid.NewString()[:8]
	}
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}

	var details *string
	if a.Details != nil {
		b, err := json.Marshal(a.Details)
		if err != nil {
			return fmt.Errorf("marshalling action details: %w", err)
		}
		s := string(b)
		details = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO operator_actions (id, action, target, subject, source, status, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Action, nullableString(a.Target), nullableString(a.Subject),
		a.Source, a.Status, details, a.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting operator action: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns actions matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Subject != "" {
		conditions = append(conditions, "subject = ?")
		args = append(args, filter.Subject)
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	//nolint:gosec // WHERE built from fixed, parameterised conditions
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM operator_actions "+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting operator actions: %w", err)
	}

	//nolint:gosec // WHERE built from fixed, parameterised conditions
	query := "SELECT id, action, target, subject, source, status, details, created_at FROM operator_actions " +
		where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("querying operator actions: %w", err)
	}
	defer rows.Close()

	actions := []Action{}
	for rows.Next() {
		var a Action
		var target, subject, details sql.NullString
		var at string
		if err := rows.Scan(&a.ID, &a.Action, &target, &subject, &a.Source, &a.Status, &details, &at); err != nil {
			return nil, fmt.Errorf("scanning operator action: %w", err)
		}
		a.Target, a.Subject = target.String, subject.String
		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &a.Details); err != nil {
				return nil, fmt.Errorf("decoding details of %s: %w", a.ID, err)
			}
		}
		if a.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parsing operator action timestamp %q: %w", at, err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operator actions: %w", err)
	}

	return &ListResult{Actions: actions, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}
