package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

const (
	taskEmbedThought  = "embed_thought"
	taskEmbedCategory = "embed_category"
)

// QueueTask represents a row from the processing_queue table.
type QueueTask struct {
	ID          int64
	TaskType    string
	Payload     string
	Priority    int
	Status      string
	Attempts    int
	MaxAttempts int
	Error       string
}

// Enqueue adds a task to the processing queue and wakes the worker.
// Failures are logged, not returned.
func (s *Store) Enqueue(ctx context.Context, taskType, payload string, priority int) {
	now := s.timestamp()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO processing_queue (task_type, payload, priority, status, max_attempts, created_at, updated_at)
		 VALUES (?, ?, ?, 'pending', ?, ?, ?)`,
		taskType, payload, priority, s.maxAttempts, now, now,
	)
	if err != nil {
		slog.Warn("store: enqueue failed", "type", taskType, "error", err)
		return
	}

	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// Dequeue claims the highest-priority pending task of the given type.
// Returns nil if no tasks are available.
func (s *Store) Dequeue(ctx context.Context, taskType string) (*QueueTask, error) {
	now := s.timestamp()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var t QueueTask
	err = tx.QueryRowContext(ctx,
		`SELECT id, task_type, payload, priority, status, attempts, max_attempts, error
		 FROM processing_queue
		 WHERE task_type = ? AND status = 'pending' AND attempts < max_attempts
		 ORDER BY priority DESC, id ASC
		 LIMIT 1`,
		taskType,
	).Scan(&t.ID, &t.TaskType, &t.Payload, &t.Priority, &t.Status, &t.Attempts, &t.MaxAttempts, &t.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select task: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE processing_queue SET status = 'processing', attempts = attempts + 1, updated_at = ? WHERE id = ?`,
		now, t.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	t.Status = "processing"
	t.Attempts++
	return &t, nil
}

// CompleteTask marks a task as completed.
func (s *Store) CompleteTask(ctx context.Context, id int64) {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE processing_queue SET status = 'completed', error = '', updated_at = ? WHERE id = ?`,
		s.timestamp(), id,
	); err != nil {
		slog.Warn("store: complete task", "id", id, "error", err)
	}
}

// FailTask records a task failure. The task returns to pending while it has
// attempts left and is marked failed otherwise.
func (s *Store) FailTask(ctx context.Context, id int64, taskErr error) {
	errMsg := ""
	if taskErr != nil {
		errMsg = taskErr.Error()
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE processing_queue
		 SET status = CASE WHEN attempts < max_attempts THEN 'pending' ELSE 'failed' END,
		     error = ?, updated_at = ?
		 WHERE id = ?`,
		errMsg, s.timestamp(), id,
	)
	if err != nil {
		slog.Warn("store: fail task", "id", id, "error", err)
	}
}

// RecoverStaleTasks resets tasks left in 'processing' back to 'pending',
// which happens when the process died mid-task.
func (s *Store) RecoverStaleTasks(ctx context.Context) int {
	res, err := s.db.ExecContext(ctx,
		`UPDATE processing_queue SET status = 'pending' WHERE status = 'processing'`)
	if err != nil {
		slog.Warn("store: failed to recover stale tasks", "error", err)
		return 0
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		slog.Info("store: recovered stale tasks", "count", n)
	}
	return int(n)
}

// QueueCounts returns the number of tasks per queue status.
func (s *Store) QueueCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM processing_queue GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, fmt.Errorf("scan queue count: %w", err)
		}
		out[st] = n
	}
	return out, rows.Err()
}

func (s *Store) hasPendingTask(ctx context.Context, taskType, payload string) bool {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processing_queue
		 WHERE task_type = ? AND payload = ? AND status IN ('pending', 'processing') AND attempts < max_attempts`,
		taskType, payload,
	).Scan(&n)
	return err == nil && n > 0
}
