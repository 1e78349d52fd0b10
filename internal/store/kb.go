package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benhoenig/NOVA-II/internal/kb"
)

const kbColumns = `id, title, COALESCE(content,''), category,
	COALESCE(tags,''), created_at, updated_at`

// AddEntry files an entry under its category and assigns the next
// per-category identifier, e.g. LES-004.
func (s *Store) AddEntry(ctx context.Context, e *kb.Entry) error {
	if e.Title == "" {
		return fmt.Errorf("adding entry: title is required")
	}
	e.Category = kb.NormalizeCategory(string(e.Category))

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("adding entry: %w", err)
	}
	defer tx.Rollback()

	prefix := e.Category.Prefix()
	var n int
	if err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COALESCE(MAX(CAST(substr(id, %d) AS INTEGER)), 0) FROM kb_entries
		WHERE id LIKE ? || '-%%'`, len(prefix)+2),
		prefix).Scan(&n); err != nil {
		return fmt.Errorf("numbering entry: %w", err)
	}
	e.ID = kb.FormatID(e.Category, n+1)
	e.CreatedAt = time.Now().UTC().Truncate(time.Second)
	e.UpdatedAt = e.CreatedAt

	created := e.CreatedAt.Format(time.DateTime)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO kb_entries (id, title, content, category, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, nullStr(e.Content), string(e.Category), nullStr(e.Tags),
		created, created); err != nil {
		return fmt.Errorf("adding entry: %w", err)
	}
	return tx.Commit()
}

func (s *Store) GetEntry(ctx context.Context, id string) (*kb.Entry, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT "+kbColumns+" FROM kb_entries WHERE id = ?", strings.ToUpper(strings.TrimSpace(id)))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting entry %s: %w", id, err)
	}
	return e, nil
}

// SearchEntries ranks all entries against the query terms. Scoring
// happens in Go because the corpus is small and the terms are free
// text in two languages.
func (s *Store) SearchEntries(ctx context.Context, query string) ([]*kb.Entry, error) {
	all, err := s.ListEntries(ctx, "")
	if err != nil {
		return nil, err
	}
	return kb.Rank(all, query), nil
}

// ListEntries returns entries newest first, optionally limited to one
// category.
func (s *Store) ListEntries(ctx context.Context, category string) ([]*kb.Entry, error) {
	query := "SELECT " + kbColumns + " FROM kb_entries"
	var args []any
	if category != "" {
		query += " WHERE category = ?"
		args = append(args, string(kb.NormalizeCategory(category)))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()
	var entries []*kb.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(r rowScanner) (*kb.Entry, error) {
	var e kb.Entry
	var category, created, updated string
	if err := r.Scan(&e.ID, &e.Title, &e.Content, &category, &e.Tags,
		&created, &updated); err != nil {
		return nil, err
	}
	e.Category = kb.Category(category)
	if t := parseInstant(created); t != nil {
		e.CreatedAt = *t
	}
	if t := parseInstant(updated); t != nil {
		e.UpdatedAt = *t
	}
	return &e, nil
}
