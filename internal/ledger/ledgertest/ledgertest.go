// Package ledgertest opens a ledger on an in-memory sqlite database with the
// production schema translated to sqlite types.
package ledgertest

import (
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/contentbot/internal/ledger"
)

var schema = []string{
	`CREATE TABLE users (
		user_id INTEGER PRIMARY KEY,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		group_leader TEXT,
		card_number TEXT NOT NULL DEFAULT '',
		sheba_number TEXT,
		balance REAL NOT NULL DEFAULT 0 CHECK (balance >= 0),
		approved_count INTEGER NOT NULL DEFAULT 0 CHECK (approved_count >= 0),
		registered_at DATETIME NOT NULL
	);`,
	`CREATE TABLE submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		content_type TEXT NOT NULL CHECK (content_type IN ('text', 'photo')),
		status TEXT NOT NULL DEFAULT 'pending',
		submitted_at DATETIME NOT NULL
	);`,
	`CREATE TABLE submission_details (
		submission_id INTEGER PRIMARY KEY,
		approved_count INTEGER NOT NULL CHECK (approved_count >= 0),
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE support_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		message TEXT NOT NULL,
		direction TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`,
	`CREATE TABLE bot_status (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		is_active BOOLEAN NOT NULL DEFAULT 1
	);`,
	`INSERT INTO bot_status (id, is_active) VALUES (1, 1);`,
	`CREATE TABLE required_channels (
		channel_id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		invite_link TEXT NOT NULL
	);`,
}

// NewDB opens a fresh in-memory database with the ledger tables.
func NewDB(t testing.TB) *sqlx.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := sqlx.Open("sqlite3", dsn)
	require.NoError(t, err, "open sqlite")
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	for _, q := range schema {
		MustExec(t, db, q)
	}
	return db
}

// New returns a Store on a fresh database.
func New(t testing.TB) *ledger.Store {
	t.Helper()
	return ledger.New(NewDB(t))
}

// MustExec runs q and fails the test on error.
func MustExec(t testing.TB, db *sqlx.DB, q string, args ...any) {
	t.Helper()
	_, err := db.Exec(q, args...)
	require.NoError(t, err, "exec failed: query=%s", q)
}
