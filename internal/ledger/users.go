package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const userColumns = `user_id, first_name, last_name, group_leader, card_number,
	sheba_number, balance, approved_count, registered_at`

// GetUser loads one user or returns ErrNotFound.
func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	q := s.db.Rebind(`SELECT ` + userColumns + ` FROM users WHERE user_id = ?`)
	if err := s.db.GetContext(ctx, &u, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("ledger: get user %d: %w", id, err)
	}
	return u, nil
}

// UserExists reports whether a row with the id exists.
func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	var n int
	q := s.db.Rebind(`SELECT COUNT(*) FROM users WHERE user_id = ?`)
	if err := s.db.GetContext(ctx, &n, q, id); err != nil {
		return false, fmt.Errorf("ledger: user exists %d: %w", id, err)
	}
	return n > 0, nil
}

// StartRegistration creates the user row with its first name, or refreshes
// the first name and registration time if the row is already there.
func (s *Store) StartRegistration(ctx context.Context, id int64, firstName string) error {
	q := s.db.Rebind(`INSERT INTO users (user_id, first_name, registered_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE
		SET first_name = excluded.first_name, registered_at = excluded.registered_at`)
	if _, err := s.db.ExecContext(ctx, q, id, firstName, s.stamp()); err != nil {
		return fmt.Errorf("ledger: start registration %d: %w", id, err)
	}
	return nil
}

// UpdateField sets one profile column.
func (s *Store) UpdateField(ctx context.Context, id int64, field Field, value string) error {
	if !field.valid() {
		return fmt.Errorf("ledger: unknown field %q", field)
	}
	q := s.db.Rebind(`UPDATE users SET ` + string(field) + ` = ? WHERE user_id = ?`)
	res, err := s.db.ExecContext(ctx, q, value, id)
	if err != nil {
		return fmt.Errorf("ledger: update %s for %d: %w", field, id, err)
	}
	return requireRow(res, "update "+string(field))
}

// ListUsers returns every user ordered by registration.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	q := `SELECT ` + userColumns + ` FROM users ORDER BY registered_at, user_id`
	if err := s.db.SelectContext(ctx, &users, q); err != nil {
		return nil, fmt.Errorf("ledger: list users: %w", err)
	}
	return users, nil
}

// ListUserIDs returns the ids of every user.
func (s *Store) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := s.db.SelectContext(ctx, &ids, `SELECT user_id FROM users ORDER BY user_id`); err != nil {
		return nil, fmt.Errorf("ledger: list user ids: %w", err)
	}
	return ids, nil
}

// CountUsers returns the number of users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("ledger: count users: %w", err)
	}
	return n, nil
}

// FindUsersByName matches first and last name case-insensitively.
func (s *Store) FindUsersByName(ctx context.Context, firstName, lastName string) ([]User, error) {
	var users []User
	q := s.db.Rebind(`SELECT ` + userColumns + ` FROM users
		WHERE LOWER(first_name) = ? AND LOWER(last_name) = ?
		ORDER BY user_id`)
	err := s.db.SelectContext(ctx, &users, q,
		strings.ToLower(strings.TrimSpace(firstName)),
		strings.ToLower(strings.TrimSpace(lastName)),
	)
	if err != nil {
		return nil, fmt.Errorf("ledger: find users by name: %w", err)
	}
	return users, nil
}

// SetBalance overwrites the balance. A zero balance also resets the approved
// count; both writes share one transaction.
func (s *Store) SetBalance(ctx context.Context, id int64, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("ledger: negative balance %v", amount)
	}
	return s.inTx(ctx, "set balance", func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET balance = ? WHERE user_id = ?`), amount, id)
		if err != nil {
			return fmt.Errorf("ledger: set balance %d: %w", id, err)
		}
		if err := requireRow(res, "set balance"); err != nil {
			return err
		}
		if amount != 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE users SET approved_count = 0 WHERE user_id = ?`), id); err != nil {
			return fmt.Errorf("ledger: reset approved count %d: %w", id, err)
		}
		return nil
	})
}

// ResetApprovedCount sets approved_count to zero.
func (s *Store) ResetApprovedCount(ctx context.Context, id int64) error {
	q := s.db.Rebind(`UPDATE users SET approved_count = 0 WHERE user_id = ?`)
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("ledger: reset approved count %d: %w", id, err)
	}
	return requireRow(res, "reset approved count")
}
