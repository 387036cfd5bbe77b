package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/leapconnect/pkg/dispatch"
)

// Entry is a persisted journal entry.
type Entry struct {
	ID           string
	ConnectionID string
	EntityType   string
	Operation    string
	Method       string
	URL          string
	Status       int
	Error        string
	Duration     time.Duration
	StartedAt    time.Time
}

// Failed reports whether the request ended in an error.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// ListOptions filters ListEntries.
type ListOptions struct {
	// EntityType restricts the result to one entity type (optional)
	EntityType string
	// Limit caps the number of entries, newest first (0 means 50)
	Limit int
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var _ dispatch.Journal = (*SQLiteStore)(nil)

// Record implements dispatch.Journal.
func (s *SQLiteStore) Record(ctx context.Context, e dispatch.Entry) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	var errMsg sql.NullString
	if e.Err != nil {
		errMsg = sql.NullString{String: e.Err.Error(), Valid: true}
	}
	started := e.StartedAt
	if started.IsZero() {
		started = time.Now()
	}

	id := generateID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO journal (id, connection_id, entity_type, operation, method, url, status, error, duration_ms, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.ConnectionID, e.EntityType, string(e.Operation), e.Method, e.URL,
		e.Status, errMsg, e.Duration.Milliseconds(), started.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to record journal entry: %w", err)
	}

	s.logger.Debug("recorded journal entry", slog.String("id", id), slog.String("entity", e.EntityType))
	return nil
}

// ListEntries returns journal entries, newest first.
func (s *SQLiteStore) ListEntries(ctx context.Context, opts ListOptions) ([]Entry, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		where []string
		args  []any
	)
	if opts.EntityType != "" {
		where = append(where, "entity_type = ?")
		args = append(args, opts.EntityType)
	}
	query := `SELECT id, connection_id, entity_type, operation, method, url, status, error, duration_ms, started_at FROM journal`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			errMsg     sql.NullString
			durationMS int64
			startedAt  string
		)
		if err := rows.Scan(&e.ID, &e.ConnectionID, &e.EntityType, &e.Operation, &e.Method, &e.URL,
			&e.Status, &errMsg, &durationMS, &startedAt); err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		e.Error = errMsg.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		if e.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journal entries: %w", err)
	}
	return entries, nil
}

// Prune deletes entries that started before cutoff and returns how many were removed.
func (s *SQLiteStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.db == nil {
		return 0, fmt.Errorf("database not opened")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM journal WHERE started_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return res.RowsAffected()
}
