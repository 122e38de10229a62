package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// IsBotActive reports the global switch. A missing row counts as active.
func (s *Store) IsBotActive(ctx context.Context) (bool, error) {
	var active bool
	err := s.db.GetContext(ctx, &active, `SELECT is_active FROM bot_status WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("ledger: bot status: %w", err)
	}
	return active, nil
}

// ToggleBotActive flips the global switch and returns the new value.
func (s *Store) ToggleBotActive(ctx context.Context) (bool, error) {
	var next bool
	err := s.inTx(ctx, "toggle bot", func(tx *sqlx.Tx) error {
		current := true
		err := tx.GetContext(ctx, &current, `SELECT is_active FROM bot_status WHERE id = 1`)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("ledger: bot status: %w", err)
		}
		next = !current
		q := tx.Rebind(`INSERT INTO bot_status (id, is_active) VALUES (1, ?)
			ON CONFLICT (id) DO UPDATE SET is_active = excluded.is_active`)
		if _, err := tx.ExecContext(ctx, q, next); err != nil {
			return fmt.Errorf("ledger: toggle bot: %w", err)
		}
		return nil
	})
	return next, err
}

// RequiredChannels lists the membership-gate channels.
func (s *Store) RequiredChannels(ctx context.Context) ([]Channel, error) {
	var chans []Channel
	if err := s.db.SelectContext(ctx, &chans, `SELECT channel_id, title, invite_link FROM required_channels ORDER BY channel_id`); err != nil {
		return nil, fmt.Errorf("ledger: required channels: %w", err)
	}
	return chans, nil
}

// ReplaceRequiredChannels swaps the channel list for chans.
func (s *Store) ReplaceRequiredChannels(ctx context.Context, chans []Channel) error {
	return s.inTx(ctx, "replace channels", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM required_channels`); err != nil {
			return fmt.Errorf("ledger: clear channels: %w", err)
		}
		q := tx.Rebind(`INSERT INTO required_channels (channel_id, title, invite_link) VALUES (?, ?, ?)`)
		for _, c := range chans {
			if _, err := tx.ExecContext(ctx, q, c.ID, c.Title, c.InviteLink); err != nil {
				return fmt.Errorf("ledger: insert channel %d: %w", c.ID, err)
			}
		}
		return nil
	})
}
