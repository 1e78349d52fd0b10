package store

import (
	"context"
	"fmt"
	"time"
)

// AddSubscriber registers a chat user for reminder pushes. Adding the
// same user twice is a no-op.
func (s *Store) AddSubscriber(ctx context.Context, userID, displayName string) error {
	if userID == "" {
		return fmt.Errorf("adding subscriber: user id is required")
	}
	_, err := s.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO subscribers (user_id, display_name, created_at)
		VALUES (?, ?, ?)`,
		userID, nullStr(displayName), time.Now().UTC().Format(time.DateTime))
	if err != nil {
		return fmt.Errorf("adding subscriber: %w", err)
	}
	return nil
}

func (s *Store) RemoveSubscriber(ctx context.Context, userID string) error {
	if _, err := s.conn.ExecContext(ctx,
		"DELETE FROM subscribers WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("removing subscriber: %w", err)
	}
	return nil
}

func (s *Store) ListSubscribers(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT user_id FROM subscribers ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
