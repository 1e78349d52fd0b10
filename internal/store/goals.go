package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/schedule"
)

const goalColumns = `id, name, COALESCE(description,''), COALESCE(category,''),
	COALESCE(start_date,''), COALESCE(due_date,''), status, priority,
	COALESCE(schedule,''), COALESCE(last_reminded,''), COALESCE(notes,''),
	created_at, COALESCE(completed_at,'')`

// Create assigns the next GOAL-NNN identifier inside a transaction so
// concurrent creates never collide, then inserts the goal.
func (s *Store) Create(ctx context.Context, g *goal.Goal) error {
	if g.Name == "" {
		return fmt.Errorf("creating goal: name is required")
	}
	if g.Status == "" {
		g.Status = goal.StatusActive
	}
	if g.Priority == "" {
		g.Priority = goal.PriorityMedium
	}
	if g.StartDate != nil && g.DueDate != nil && g.DueDate.Before(*g.StartDate) {
		return fmt.Errorf("creating goal: due date %s is before start date %s",
			g.DueDate.Format("2006-01-02"), g.StartDate.Format("2006-01-02"))
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("creating goal: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(CAST(substr(id, 6) AS INTEGER)), 0) FROM goals`,
	).Scan(&n); err != nil {
		return fmt.Errorf("numbering goal: %w", err)
	}
	g.ID = goal.FormatID(n + 1)
	g.CreatedAt = time.Now().UTC().Truncate(time.Second)

	var sched any
	if g.Schedule != nil {
		sched = g.Schedule.String()
	}
	created := g.CreatedAt.Format(time.DateTime)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO goals (id, name, description, category, start_date, due_date,
			status, priority, schedule, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Name, nullStr(g.Description), nullStr(g.Category),
		dateArg(g.StartDate), dateArg(g.DueDate), string(g.Status), string(g.Priority),
		sched, nullStr(g.Notes), created, created,
	); err != nil {
		return fmt.Errorf("creating goal: %w", err)
	}
	return tx.Commit()
}

func (s *Store) Get(ctx context.Context, id string) (*goal.Goal, error) {
	row := s.conn.QueryRowContext(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = ?", id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, goal.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting goal %s: %w", id, err)
	}
	return g, nil
}

// FindByNameFragment matches case-insensitively as a substring, most
// recently created first.
func (s *Store) FindByNameFragment(ctx context.Context, fragment string) ([]*goal.Goal, error) {
	return s.scanGoals(ctx,
		"SELECT "+goalColumns+` FROM goals
		WHERE LOWER(name) LIKE '%' || LOWER(?) || '%'
		ORDER BY created_at DESC, id DESC`,
		strings.TrimSpace(fragment))
}

func (s *Store) List(ctx context.Context) ([]*goal.Goal, error) {
	return s.scanGoals(ctx,
		"SELECT "+goalColumns+` FROM goals
		ORDER BY CASE status WHEN 'Active' THEN 0 WHEN 'Paused' THEN 1 WHEN 'Completed' THEN 2 ELSE 3 END,
			COALESCE(due_date, '9999-12-31'), id`)
}

func (s *Store) ListActive(ctx context.Context) ([]*goal.Goal, error) {
	return s.scanGoals(ctx,
		"SELECT "+goalColumns+` FROM goals WHERE status = 'Active'
		ORDER BY COALESCE(due_date, '9999-12-31'), id`)
}

// Update applies a sparse field set. A note is appended to the stored
// notes with a newline, never replacing them.
func (s *Store) Update(ctx context.Context, id string, u goal.Update) (*goal.Goal, error) {
	fields := map[string]any{}
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Description != nil {
		fields["description"] = nullStr(*u.Description)
	}
	if u.Category != nil {
		fields["category"] = nullStr(*u.Category)
	}
	if u.StartDate != nil {
		fields["start_date"] = u.StartDate.Format("2006-01-02")
	}
	if u.DueDate != nil {
		fields["due_date"] = u.DueDate.Format("2006-01-02")
	}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	if u.Priority != nil {
		fields["priority"] = string(*u.Priority)
	}
	if u.Schedule != nil {
		fields["schedule"] = u.Schedule.String()
	}
	if u.CompletedAt != nil {
		fields["completed_at"] = instantArg(u.CompletedAt)
	}

	if len(fields) == 0 && u.Note == nil {
		return s.Get(ctx, id)
	}

	clauses, args, err := setClauses("goals", fields)
	if err != nil {
		return nil, err
	}
	if u.Note != nil {
		clauses = append(clauses,
			"notes = CASE WHEN notes IS NULL OR notes = '' THEN ? ELSE notes || char(10) || ? END")
		args = append(args, *u.Note, *u.Note)
	}
	clauses = append(clauses, "updated_at = datetime('now')")
	args = append(args, id)

	query := "UPDATE goals SET " + strings.Join(clauses, ", ") + " WHERE id = ?"
	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating goal %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%s: %w", id, goal.ErrNotFound)
	}
	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, "DELETE FROM goals WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting goal %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, goal.ErrNotFound)
	}
	return nil
}

// MarkReminded advances last_reminded to now only while it still holds
// the value read at scan time, so overlapping reminder cycles cannot
// double-mark a goal.
func (s *Store) MarkReminded(ctx context.Context, id string, seen *time.Time, now time.Time) (bool, error) {
	val := now.UTC().Format(time.DateTime)
	var res sql.Result
	var err error
	if seen == nil {
		res, err = s.conn.ExecContext(ctx,
			`UPDATE goals SET last_reminded = ?, updated_at = datetime('now')
			WHERE id = ? AND (last_reminded IS NULL OR last_reminded = '')`,
			val, id)
	} else {
		res, err = s.conn.ExecContext(ctx,
			`UPDATE goals SET last_reminded = ?, updated_at = datetime('now')
			WHERE id = ? AND last_reminded = ?`,
			val, id, seen.UTC().Format(time.DateTime))
	}
	if err != nil {
		return false, fmt.Errorf("marking reminded %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) scanGoals(ctx context.Context, query string, args ...any) ([]*goal.Goal, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()
	var goals []*goal.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func scanGoal(r rowScanner) (*goal.Goal, error) {
	var g goal.Goal
	var start, due, status, priority, sched, last, created, completed string
	if err := r.Scan(&g.ID, &g.Name, &g.Description, &g.Category, &start, &due,
		&status, &priority, &sched, &last, &g.Notes, &created, &completed); err != nil {
		return nil, err
	}
	g.Status = goal.Status(status)
	g.Priority = goal.Priority(priority)
	g.StartDate = parseDate(start)
	g.DueDate = parseDate(due)
	g.LastReminded = parseInstant(last)
	g.CompletedAt = parseInstant(completed)
	if t := parseInstant(created); t != nil {
		g.CreatedAt = *t
	}
	if sched != "" {
		if sc, err := schedule.Normalize(sched); err == nil {
			g.Schedule = &sc
		} else {
			log.Printf("store: goal %s has unreadable schedule %q", g.ID, sched)
		}
	}
	return &g, nil
}
