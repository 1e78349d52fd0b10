package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benhoenig/NOVA-II/internal/goal"
)

const taskColumns = `id, goal_id, seq, name, COALESCE(description,''),
	COALESCE(timeline,''), COALESCE(due_date,''), status, created_at, COALESCE(completed_at,'')`

// AddTask appends a task to a goal. A zero Seq takes the next free
// position.
func (s *Store) AddTask(ctx context.Context, t *goal.Task) error {
	if t.Name == "" {
		return fmt.Errorf("adding task: name is required")
	}
	if t.Status == "" {
		t.Status = goal.TaskTodo
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("adding task: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM goals WHERE id = ?", t.GoalID).Scan(&exists); err != nil {
		return fmt.Errorf("adding task: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%s: %w", t.GoalID, goal.ErrNotFound)
	}

	if t.Seq == 0 {
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(seq), 0) + 1 FROM tasks WHERE goal_id = ?",
			t.GoalID).Scan(&t.Seq); err != nil {
			return fmt.Errorf("numbering task: %w", err)
		}
	}
	t.CreatedAt = time.Now().UTC().Truncate(time.Second)

	res, err := tx.ExecContext(ctx,
		`INSERT INTO tasks (goal_id, seq, name, description, timeline, due_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.GoalID, t.Seq, t.Name, nullStr(t.Description), nullStr(t.Timeline),
		dateArg(t.DueDate), string(t.Status), t.CreatedAt.Format(time.DateTime))
	if err != nil {
		return fmt.Errorf("adding task to %s: %w", t.GoalID, err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("adding task to %s: %w", t.GoalID, err)
	}
	return tx.Commit()
}

func (s *Store) ListTasks(ctx context.Context, goalID string) ([]*goal.Task, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE goal_id = ? ORDER BY seq", goalID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks for %s: %w", goalID, err)
	}
	defer rows.Close()
	var tasks []*goal.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus moves a task to the given status. Completion is
// stamped when the task reaches Done and cleared if it is reopened.
func (s *Store) UpdateTaskStatus(ctx context.Context, goalID string, seq int, status goal.TaskStatus) (*goal.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("updating task: unknown status %q", status)
	}
	var completed any
	if status == goal.TaskDone {
		completed = time.Now().UTC().Format(time.DateTime)
	}
	res, err := s.conn.ExecContext(ctx,
		"UPDATE tasks SET status = ?, completed_at = ? WHERE goal_id = ? AND seq = ?",
		string(status), completed, goalID, seq)
	if err != nil {
		return nil, fmt.Errorf("updating task %d of %s: %w", seq, goalID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("task %d of %s: %w", seq, goalID, goal.ErrNotFound)
	}

	row := s.conn.QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE goal_id = ? AND seq = ?", goalID, seq)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d of %s: %w", seq, goalID, goal.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("updating task %d of %s: %w", seq, goalID, err)
	}
	return t, nil
}

func scanTask(r rowScanner) (*goal.Task, error) {
	var t goal.Task
	var due, status, created, completed string
	if err := r.Scan(&t.ID, &t.GoalID, &t.Seq, &t.Name, &t.Description,
		&t.Timeline, &due, &status, &created, &completed); err != nil {
		return nil, err
	}
	t.Status = goal.TaskStatus(status)
	t.DueDate = parseDate(due)
	t.CompletedAt = parseInstant(completed)
	if ts := parseInstant(created); ts != nil {
		t.CreatedAt = *ts
	}
	return &t, nil
}
