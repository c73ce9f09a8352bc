// Package sqlite implements persistent storage for loans, the transaction
// ledger, and the user/family directory on an embedded SQLite database.
//
// Every loan lifecycle transition commits as one transaction: the loan row
// mutation (guarded by an optimistic version check) plus all ledger entries
// the transition emits. Either everything lands or nothing does.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// DB wraps the SQLite handle with typed accessors.
type DB struct {
	db *sql.DB
}

// Open creates or opens the database under dir and applies migrations.
func Open(dir string) (*DB, error) {
	path := filepath.Join(dir, "fiambond.db")
	handle, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows a single writer; one connection avoids SQLITE_BUSY
	// churn under concurrent transitions.
	handle.SetMaxOpenConns(1)

	db := &DB{db: handle}
	if err := db.migrate(); err != nil {
		handle.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the database handle.
func (db *DB) Close() error { return db.db.Close() }

// migrate applies the schema. Each string is a single SQL statement
// (SQLite executes one at a time).
func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Migrations returns the schema migration statements.
func Migrations() []string {
	return []string{
		// Directory
		`CREATE TABLE IF NOT EXISTS users (
			id         TEXT PRIMARY KEY,
			full_name  TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS families (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			owner_id   TEXT NOT NULL REFERENCES users(id),
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS family_members (
			family_id TEXT NOT NULL REFERENCES families(id),
			user_id   TEXT NOT NULL REFERENCES users(id),
			joined_at TEXT NOT NULL,
			PRIMARY KEY (family_id, user_id)
		)`,

		// Loans. Amounts are decimal strings; pending repayment and the
		// receipt history are JSON sub-records, mirroring the document
		// shape the clients exchange.
		`CREATE TABLE IF NOT EXISTS loans (
			id              TEXT PRIMARY KEY,
			family_id       TEXT,
			creditor_id     TEXT NOT NULL,
			debtor_id       TEXT,
			debtor_name     TEXT NOT NULL DEFAULT '',
			amount          TEXT NOT NULL,
			interest_amount TEXT NOT NULL DEFAULT '0',
			total_owed      TEXT NOT NULL,
			repaid_amount   TEXT NOT NULL DEFAULT '0',
			status          TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			pending_json    TEXT,
			receipts_json   TEXT NOT NULL DEFAULT '[]',
			attachment_url  TEXT,
			deadline        TEXT,
			created_at      TEXT NOT NULL,
			confirmed_at    TEXT,
			version         INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_creditor ON loans(creditor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_debtor ON loans(debtor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_family ON loans(family_id)`,
		`CREATE INDEX IF NOT EXISTS idx_loans_status ON loans(status)`,

		// Append-only ledger
		`CREATE TABLE IF NOT EXISTS transactions (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			family_id      TEXT,
			loan_id        TEXT,
			type           TEXT NOT NULL CHECK (type IN ('income', 'expense')),
			amount         TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			attachment_url TEXT,
			created_at     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_user ON transactions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_family ON transactions(family_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_loan ON transactions(loan_id)`,
	}
}
