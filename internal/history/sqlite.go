package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	text       TEXT    NOT NULL,
	created_at INTEGER NOT NULL
)`

// SQLiteJournal stores history in a local SQLite file, keeping at most
// Capacity rows.
type SQLiteJournal struct {
	db *sql.DB
}

// Compile-time interface satisfaction check.
var _ Journal = (*SQLiteJournal)(nil)

// OpenJournal opens or creates the journal at path.
func OpenJournal(path string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("history: create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// Close closes the database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// Append stores item and trims the table to Capacity rows.
func (j *SQLiteJournal) Append(item Item) error {
	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT INTO history (text, created_at) VALUES (?, ?)`,
		item.Text, item.CreatedAt.UnixMilli()); err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	if _, err := tx.Exec(`
		DELETE FROM history
		WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)
	`, Capacity); err != nil {
		return fmt.Errorf("history: trim: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: commit: %w", err)
	}
	return nil
}

// Clear deletes every row.
func (j *SQLiteJournal) Clear() error {
	if _, err := j.db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("history: clear: %w", err)
	}
	return nil
}

// Recent returns up to n items, newest first.
func (j *SQLiteJournal) Recent(n int) ([]Item, error) {
	rows, err := j.db.Query(`
		SELECT text, created_at
		FROM history
		ORDER BY id DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []Item
	for rows.Next() {
		var it Item
		var createdAt int64
		if err := rows.Scan(&it.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		it.CreatedAt = time.UnixMilli(createdAt)
		items = append(items, it)
	}
	return items, rows.Err()
}
