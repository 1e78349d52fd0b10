package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// ActionLog is one row of the activity trail.
type ActionLog struct {
	ID          int64     `json:"id"`
	ActionType  string    `json:"action_type"`
	Description string    `json:"description"`
	Details     string    `json:"details,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LogAction records what the assistant did. Logging must never fail an
// operation, so problems are only warned about.
func (s *Store) LogAction(ctx context.Context, actionType, description string, details any) {
	var payload any
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			log.Printf("store: encoding details for %s: %v", actionType, err)
		} else {
			payload = string(b)
		}
	}
	if _, err := s.conn.ExecContext(ctx,
		`INSERT INTO history_logs (action_type, description, details, created_at)
		VALUES (?, ?, ?, ?)`,
		actionType, description, payload,
		time.Now().UTC().Format(time.DateTime)); err != nil {
		log.Printf("store: logging action %s: %v", actionType, err)
	}
}

func (s *Store) RecentActions(ctx context.Context, limit int) ([]*ActionLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, action_type, COALESCE(description,''), COALESCE(details,''), created_at
		FROM history_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing actions: %w", err)
	}
	defer rows.Close()
	var logs []*ActionLog
	for rows.Next() {
		var a ActionLog
		var created string
		if err := rows.Scan(&a.ID, &a.ActionType, &a.Description, &a.Details, &created); err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		if t := parseInstant(created); t != nil {
			a.CreatedAt = *t
		}
		logs = append(logs, &a)
	}
	return logs, rows.Err()
}

// Stats is the dashboard summary.
type Stats struct {
	ActiveGoals int    `json:"active_goals"`
	TotalGoals  int    `json:"total_goals"`
	TotalTasks  int    `json:"total_tasks"`
	DoneTasks   int    `json:"done_tasks"`
	KBEntries   int    `json:"kb_entries"`
	Timestamp   string `json:"timestamp"`
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Timestamp: time.Now().UTC().Format(time.RFC3339)}
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM goals WHERE status = 'Active'", &st.ActiveGoals},
		{"SELECT COUNT(*) FROM goals", &st.TotalGoals},
		{"SELECT COUNT(*) FROM tasks", &st.TotalTasks},
		{"SELECT COUNT(*) FROM tasks WHERE status = 'Done'", &st.DoneTasks},
		{"SELECT COUNT(*) FROM kb_entries", &st.KBEntries},
	}
	for _, c := range counts {
		if err := s.conn.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting stats: %w", err)
		}
	}
	return st, nil
}
