package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS links (
	url TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	domain TEXT NOT NULL,
	first_seen TIMESTAMP NOT NULL,
	last_checked TIMESTAMP NOT NULL,
	final_url TEXT NOT NULL DEFAULT '',
	final_domain TEXT NOT NULL DEFAULT '',
	valid BOOLEAN NOT NULL DEFAULT 0,
	score INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS domains (
	domain TEXT PRIMARY KEY,
	trust INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS runs (
	ts TIMESTAMP NOT NULL,
	checked INTEGER NOT NULL,
	valid INTEGER NOT NULL,
	duration REAL NOT NULL
);`

// Open connects to the SQLite database at path, creating the schema if
// needed. The connection pool is capped at one connection so all writes
// serialize through it; concurrent resolver workers and the read surface
// share this single database handle.
func Open(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)

	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return db, nil
}
