package ledger

import (
	"context"
	"fmt"
)

// DefaultSupportLimit is the number of messages shown to admins.
const DefaultSupportLimit = 10

// AddSupportMessage appends one message to the support log.
func (s *Store) AddSupportMessage(ctx context.Context, userID int64, text string, dir Direction) error {
	if dir != UserToAdmin && dir != AdminToUser {
		return fmt.Errorf("ledger: unknown direction %q", dir)
	}
	q := s.db.Rebind(`INSERT INTO support_messages (user_id, message, direction, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, userID, text, string(dir), s.stamp()); err != nil {
		return fmt.Errorf("ledger: add support message for %d: %w", userID, err)
	}
	return nil
}

// RecentSupportMessages returns the latest messages, newest first.
func (s *Store) RecentSupportMessages(ctx context.Context, limit int) ([]SupportMessage, error) {
	if limit <= 0 {
		limit = DefaultSupportLimit
	}
	var msgs []SupportMessage
	q := s.db.Rebind(`SELECT id, user_id, message, direction, created_at FROM support_messages
		ORDER BY created_at DESC, id DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &msgs, q, limit); err != nil {
		return nil, fmt.Errorf("ledger: recent support messages: %w", err)
	}
	return msgs, nil
}
