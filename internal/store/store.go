// Package store persists goals, tasks, knowledge-base entries, LINE
// subscribers and the action history in SQLite. Dates are stored as
// YYYY-MM-DD text, instants as UTC datetime text.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

type Store struct {
	conn *sql.DB
}

func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{conn: conn}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// allowedColumns guards the generic update builder against writing
// columns the partial-update contract does not cover.
var allowedColumns = map[string]map[string]bool{
	"goals": {
		"name": true, "description": true, "category": true,
		"start_date": true, "due_date": true, "status": true,
		"priority": true, "schedule": true, "completed_at": true,
	},
	"kb_entries": {"title": true, "content": true, "category": true, "tags": true},
}

// setClauses builds the SET fragment of an UPDATE from an allow-listed
// field map.
func setClauses(table string, fields map[string]any) ([]string, []any, error) {
	allowed, ok := allowedColumns[table]
	if !ok {
		return nil, nil, fmt.Errorf("unknown table: %s", table)
	}
	var clauses []string
	var args []any
	for col, val := range fields {
		if !allowed[col] {
			return nil, nil, fmt.Errorf("disallowed column %q for table %s", col, table)
		}
		clauses = append(clauses, col+" = ?")
		args = append(args, val)
	}
	return clauses, args, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// dateArg renders a civil date for storage.
func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format("2006-01-02")
}

// instantArg renders a timestamp for storage.
func instantArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.DateTime)
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &t
}

func parseInstant(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(time.DateTime, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

type rowScanner interface {
	Scan(dest ...any) error
}
