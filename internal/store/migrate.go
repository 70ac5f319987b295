package store

import (
	"database/sql"
	"fmt"
)

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS thoughts (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			note_text    TEXT NOT NULL,
			label        TEXT NOT NULL DEFAULT '',
			urgency      TEXT NOT NULL DEFAULT 'medium',
			status       TEXT NOT NULL DEFAULT 'open',
			eta          REAL NOT NULL DEFAULT 0.5,
			embedding    BLOB,
			model        TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			completed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS thoughts_status ON thoughts(status)`,
		`CREATE INDEX IF NOT EXISTS thoughts_created ON thoughts(created_at)`,

		// Every bot message that displays a thought
		`CREATE TABLE IF NOT EXISTS thought_messages (
			chat_id    INTEGER NOT NULL,
			message_id INTEGER NOT NULL,
			thought_id INTEGER NOT NULL REFERENCES thoughts(id),
			PRIMARY KEY (chat_id, message_id)
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			show_category     TEXT NOT NULL UNIQUE,
			semantic_category TEXT NOT NULL DEFAULT '',
			embedding         BLOB,
			model             TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS status_changes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			thought_id INTEGER NOT NULL REFERENCES thoughts(id),
			old_status TEXT NOT NULL,
			new_status TEXT NOT NULL,
			changed_at TEXT NOT NULL
		)`,

		// Background task queue
		`CREATE TABLE IF NOT EXISTS processing_queue (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			task_type    TEXT NOT NULL,
			payload      TEXT NOT NULL DEFAULT '',
			priority     INTEGER NOT NULL DEFAULT 0,
			status       TEXT NOT NULL DEFAULT 'pending',
			attempts     INTEGER NOT NULL DEFAULT 0,
			max_attempts INTEGER NOT NULL DEFAULT 3,
			error        TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			updated_at   TEXT NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", truncate(s, 60), err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
