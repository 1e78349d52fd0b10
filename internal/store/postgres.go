package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/benhoenig/NOVA-II/internal/goal"
	"github.com/benhoenig/NOVA-II/internal/schedule"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS goals (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	description   TEXT,
	category      TEXT,
	start_date    DATE,
	due_date      DATE,
	status        TEXT NOT NULL DEFAULT 'Active',
	priority      TEXT NOT NULL DEFAULT 'Medium',
	schedule      TEXT,
	last_reminded TIMESTAMPTZ,
	notes         TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_goals_status ON goals (status);

CREATE TABLE IF NOT EXISTS tasks (
	id           BIGSERIAL PRIMARY KEY,
	goal_id      TEXT NOT NULL REFERENCES goals (id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	name         TEXT NOT NULL,
	description  TEXT,
	timeline     TEXT,
	due_date     DATE,
	status       TEXT NOT NULL DEFAULT 'Todo',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ,
	UNIQUE (goal_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_tasks_goal ON tasks (goal_id);
`

const pgGoalColumns = `id, name, COALESCE(description,''), COALESCE(category,''),
	start_date, due_date, status, priority, COALESCE(schedule,''),
	last_reminded, COALESCE(notes,''), created_at, completed_at`

const pgTaskColumns = `id, goal_id, seq, name, COALESCE(description,''),
	COALESCE(timeline,''), due_date, status, created_at, completed_at`

// PostgresGoals is the goal repository on Postgres, for deployments
// that outgrow the single-file database.
type PostgresGoals struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, url string) (*PostgresGoals, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("preparing schema: %w", err)
	}
	return &PostgresGoals{pool: pool}, nil
}

func (p *PostgresGoals) Close() {
	p.pool.Close()
}

func (p *PostgresGoals) Create(ctx context.Context, g *goal.Goal) error {
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

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("creating goal: %w", err)
	}
	defer tx.Rollback(ctx)

	var n int
	if err := tx.QueryRow(ctx,
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
	if _, err := tx.Exec(ctx,
		`INSERT INTO goals (id, name, description, category, start_date, due_date,
			status, priority, schedule, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)`,
		g.ID, g.Name, nullStr(g.Description), nullStr(g.Category),
		g.StartDate, g.DueDate, string(g.Status), string(g.Priority),
		sched, nullStr(g.Notes), g.CreatedAt,
	); err != nil {
		return fmt.Errorf("creating goal: %w", err)
	}
	return tx.Commit(ctx)
}

func (p *PostgresGoals) Get(ctx context.Context, id string) (*goal.Goal, error) {
	row := p.pool.QueryRow(ctx, "SELECT "+pgGoalColumns+" FROM goals WHERE id = $1", id)
	g, err := scanPgGoal(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, goal.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting goal %s: %w", id, err)
	}
	return g, nil
}

func (p *PostgresGoals) FindByNameFragment(ctx context.Context, fragment string) ([]*goal.Goal, error) {
	return p.scanGoals(ctx,
		"SELECT "+pgGoalColumns+` FROM goals
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC, id DESC`, fragment)
}

func (p *PostgresGoals) List(ctx context.Context) ([]*goal.Goal, error) {
	return p.scanGoals(ctx,
		"SELECT "+pgGoalColumns+` FROM goals
		ORDER BY CASE status WHEN 'Active' THEN 0 WHEN 'Paused' THEN 1 WHEN 'Completed' THEN 2 ELSE 3 END,
			due_date NULLS LAST, id`)
}

func (p *PostgresGoals) ListActive(ctx context.Context) ([]*goal.Goal, error) {
	return p.scanGoals(ctx,
		"SELECT "+pgGoalColumns+` FROM goals WHERE status = 'Active'
		ORDER BY due_date NULLS LAST, id`)
}

func (p *PostgresGoals) Update(ctx context.Context, id string, u goal.Update) (*goal.Goal, error) {
	var clauses []string
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if u.Name != nil {
		clauses = append(clauses, "name = "+next(*u.Name))
	}
	if u.Description != nil {
		clauses = append(clauses, "description = "+next(nullStr(*u.Description)))
	}
	if u.Category != nil {
		clauses = append(clauses, "category = "+next(nullStr(*u.Category)))
	}
	if u.StartDate != nil {
		clauses = append(clauses, "start_date = "+next(*u.StartDate))
	}
	if u.DueDate != nil {
		clauses = append(clauses, "due_date = "+next(*u.DueDate))
	}
	if u.Status != nil {
		clauses = append(clauses, "status = "+next(string(*u.Status)))
	}
	if u.Priority != nil {
		clauses = append(clauses, "priority = "+next(string(*u.Priority)))
	}
	if u.Schedule != nil {
		clauses = append(clauses, "schedule = "+next(u.Schedule.String()))
	}
	if u.CompletedAt != nil {
		clauses = append(clauses, "completed_at = "+next(u.CompletedAt.UTC()))
	}
	if u.Note != nil {
		ph := next(*u.Note)
		clauses = append(clauses,
			fmt.Sprintf("notes = CASE WHEN notes IS NULL OR notes = '' THEN %s ELSE notes || E'\\n' || %s END", ph, ph))
	}
	if len(clauses) == 0 {
		return p.Get(ctx, id)
	}
	clauses = append(clauses, "updated_at = now()")

	query := "UPDATE goals SET "
	for i, c := range clauses {
		if i > 0 {
			query += ", "
		}
		query += c
	}
	query += " WHERE id = " + next(id)

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating goal %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%s: %w", id, goal.ErrNotFound)
	}
	return p.Get(ctx, id)
}

func (p *PostgresGoals) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM goals WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting goal %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", id, goal.ErrNotFound)
	}
	return nil
}

func (p *PostgresGoals) MarkReminded(ctx context.Context, id string, seen *time.Time, now time.Time) (bool, error) {
	val := now.UTC().Truncate(time.Second)
	var tag pgconn.CommandTag
	var err error
	if seen == nil {
		tag, err = p.pool.Exec(ctx,
			`UPDATE goals SET last_reminded = $1, updated_at = now()
			WHERE id = $2 AND last_reminded IS NULL`, val, id)
	} else {
		tag, err = p.pool.Exec(ctx,
			`UPDATE goals SET last_reminded = $1, updated_at = now()
			WHERE id = $2 AND last_reminded = $3`, val, id, seen.UTC())
	}
	if err != nil {
		return false, fmt.Errorf("marking reminded %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (p *PostgresGoals) AddTask(ctx context.Context, t *goal.Task) error {
	if t.Name == "" {
		return fmt.Errorf("adding task: name is required")
	}
	if t.Status == "" {
		t.Status = goal.TaskTodo
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("adding task: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists int
	if err := tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM goals WHERE id = $1", t.GoalID).Scan(&exists); err != nil {
		return fmt.Errorf("adding task: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%s: %w", t.GoalID, goal.ErrNotFound)
	}

	if t.Seq == 0 {
		if err := tx.QueryRow(ctx,
			"SELECT COALESCE(MAX(seq), 0) + 1 FROM tasks WHERE goal_id = $1",
			t.GoalID).Scan(&t.Seq); err != nil {
			return fmt.Errorf("numbering task: %w", err)
		}
	}
	t.CreatedAt = time.Now().UTC().Truncate(time.Second)

	if err := tx.QueryRow(ctx,
		`INSERT INTO tasks (goal_id, seq, name, description, timeline, due_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		t.GoalID, t.Seq, t.Name, nullStr(t.Description), nullStr(t.Timeline),
		t.DueDate, string(t.Status), t.CreatedAt).Scan(&t.ID); err != nil {
		return fmt.Errorf("adding task to %s: %w", t.GoalID, err)
	}
	return tx.Commit(ctx)
}

func (p *PostgresGoals) ListTasks(ctx context.Context, goalID string) ([]*goal.Task, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT "+pgTaskColumns+" FROM tasks WHERE goal_id = $1 ORDER BY seq", goalID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks for %s: %w", goalID, err)
	}
	defer rows.Close()
	var tasks []*goal.Task
	for rows.Next() {
		t, err := scanPgTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (p *PostgresGoals) UpdateTaskStatus(ctx context.Context, goalID string, seq int, status goal.TaskStatus) (*goal.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("updating task: unknown status %q", status)
	}
	var completed *time.Time
	if status == goal.TaskDone {
		now := time.Now().UTC().Truncate(time.Second)
		completed = &now
	}
	row := p.pool.QueryRow(ctx,
		`UPDATE tasks SET status = $1, completed_at = $2
		WHERE goal_id = $3 AND seq = $4
		RETURNING `+pgTaskColumns,
		string(status), completed, goalID, seq)
	t, err := scanPgTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %d of %s: %w", seq, goalID, goal.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("updating task %d of %s: %w", seq, goalID, err)
	}
	return t, nil
}

func (p *PostgresGoals) scanGoals(ctx context.Context, query string, args ...any) ([]*goal.Goal, error) {
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()
	var goals []*goal.Goal
	for rows.Next() {
		g, err := scanPgGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func scanPgGoal(row pgx.Row) (*goal.Goal, error) {
	var g goal.Goal
	var status, priority, sched string
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &g.Category,
		&g.StartDate, &g.DueDate, &status, &priority, &sched,
		&g.LastReminded, &g.Notes, &g.CreatedAt, &g.CompletedAt); err != nil {
		return nil, err
	}
	g.Status = goal.Status(status)
	g.Priority = goal.Priority(priority)
	if sched != "" {
		if sc, err := schedule.Normalize(sched); err == nil {
			g.Schedule = &sc
		} else {
			log.Printf("store: goal %s has unreadable schedule %q", g.ID, sched)
		}
	}
	return &g, nil
}

func scanPgTask(row pgx.Row) (*goal.Task, error) {
	var t goal.Task
	var status string
	if err := row.Scan(&t.ID, &t.GoalID, &t.Seq, &t.Name, &t.Description,
		&t.Timeline, &t.DueDate, &status, &t.CreatedAt, &t.CompletedAt); err != nil {
		return nil, err
	}
	t.Status = goal.TaskStatus(status)
	return &t, nil
}
