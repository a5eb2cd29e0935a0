package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Zuo-Peng/cconvo/internal/catalog"
)

const sqliteSchema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
    path               TEXT PRIMARY KEY,
    mtime              INTEGER NOT NULL,
    slug               TEXT NOT NULL DEFAULT '',
    start_time         TEXT NOT NULL DEFAULT '',
    end_time           TEXT NOT NULL DEFAULT '',
    message_count      INTEGER NOT NULL DEFAULT 0,
    total_tokens       TEXT NOT NULL DEFAULT '{}',
    first_user_message TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore keeps the snapshot in a SQLite database, one row per file.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Read() (*Snapshot, error) {
	var ver string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&ver)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no schema version: %w", fs.ErrNotExist)
	}
	if err != nil {
		return nil, err
	}
	version, err := strconv.Atoi(ver)
	if err != nil {
		return nil, fmt.Errorf("bad schema version %q: %w", ver, err)
	}

	rows, err := s.db.Query(`SELECT path, mtime, slug, start_time, end_time, message_count, total_tokens, first_user_message FROM entries`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snap := &Snapshot{Version: version, Entries: make(map[string]Entry)}
	for rows.Next() {
		var (
			path, start, end, tokens string
			e                        Entry
		)
		if err := rows.Scan(&path, &e.Mtime, &e.Slug, &start, &end, &e.MessageCount, &tokens, &e.FirstUserMessage); err != nil {
			return nil, err
		}
		e.StartTime, _ = time.Parse(time.RFC3339Nano, start)
		e.EndTime, _ = time.Parse(time.RFC3339Nano, end)
		var usage catalog.TokenUsage
		if err := json.Unmarshal([]byte(tokens), &usage); err == nil {
			e.TotalTokens = usage
		}
		snap.Entries[path] = e
	}
	return snap, rows.Err()
}

// Write replaces every row in a single transaction.
func (s *SQLiteStore) Write(snap *Snapshot) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO entries (path, mtime, slug, start_time, end_time, message_count, total_tokens, first_user_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for path, e := range snap.Entries {
		tokens, err := json.Marshal(e.TotalTokens)
		if err != nil {
			return err
		}
		_, err = stmt.Exec(
			path,
			e.Mtime,
			e.Slug,
			e.StartTime.Format(time.RFC3339Nano),
			e.EndTime.Format(time.RFC3339Nano),
			e.MessageCount,
			string(tokens),
			e.FirstUserMessage,
		)
		if err != nil {
			return fmt.Errorf("insert %s: %w", path, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)",
		strconv.Itoa(snap.Version),
	); err != nil {
		return err
	}
	return tx.Commit()
}
