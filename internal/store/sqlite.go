package store

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"remindbot/pkg/logx"
)

// sqliteStore keeps the snapshot in a single table. Save rewrites the table
// inside one transaction, matching the file driver's full-rewrite contract.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	mu sync.Mutex
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reminders (
	chat_id   TEXT    NOT NULL,
	id        TEXT    NOT NULL,
	task      TEXT    NOT NULL,
	remind_at INTEGER NOT NULL, -- unix milliseconds UTC
	pos       INTEGER NOT NULL, -- insertion order within the chat
	PRIMARY KEY (chat_id, pos)
);
`

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("storage.path is required for sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Load() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		"SELECT chat_id, id, task, remind_at FROM reminders ORDER BY chat_id, pos")
	if err != nil {
		return Snapshot{}, err
	}
	defer rows.Close()

	snap := Snapshot{}
	for rows.Next() {
		var chat, id, task string
		var at int64
		if err := rows.Scan(&chat, &id, &task, &at); err != nil {
			return Snapshot{}, err
		}
		snap[chat] = append(snap[chat], Entry{
			ID:       id,
			Task:     task,
			RemindAt: time.UnixMilli(at),
		})
	}
	return snap, rows.Err()
}

func (s *sqliteStore) Save(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM reminders"); err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		"INSERT INTO reminders (chat_id, id, task, remind_at, pos) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for chat, entries := range snap {
		for pos, e := range entries {
			if _, err := stmt.Exec(chat, e.ID, e.Task, e.RemindAt.UnixMilli(), pos); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
