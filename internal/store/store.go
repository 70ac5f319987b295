// Package store persists thoughts, their categories and status history in
// SQLite, and keeps embeddings for nearest-neighbour lookups up to date with
// a small background queue.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrInvalidStatus is returned for a status outside the known set.
	ErrInvalidStatus = errors.New("store: invalid status")
	// ErrInvalidUrgency is returned for an urgency outside low/medium/high.
	ErrInvalidUrgency = errors.New("store: invalid urgency")
	// ErrNoEmbedder is returned by similarity lookups when no embedding
	// backend is configured.
	ErrNoEmbedder = errors.New("store: no embedder configured")
	// ErrEmptyText is returned when adding a thought with no text.
	ErrEmptyText = errors.New("store: empty thought text")
)

// Embedder computes one embedding vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Config holds store initialization parameters.
type Config struct {
	DBPath         string           // path to SQLite file
	Embedder       Embedder         // optional; nil disables background embedding
	EmbeddingModel string           // stored alongside embeddings for stale detection
	MaxAttempts    int              // queue retries per task (0 = default 3)
	PollInterval   time.Duration    // worker poll interval (0 = default 2s)
	Now            func() time.Time // clock, for tests (nil = time.Now)
}

// Store is the SQLite-backed note store. It is safe for concurrent use.
type Store struct {
	db             *sql.DB
	embedder       Embedder
	embeddingModel string
	maxAttempts    int
	pollInterval   time.Duration
	now            func() time.Time

	notifyCh chan struct{} // wakes the worker after an enqueue
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// timeLayout is the on-disk timestamp format. Timestamps are stored in UTC
// so string comparison orders them chronologically.
const timeLayout = "2006-01-02T15:04:05Z"

// Open opens (or creates) the store at the configured path.
func Open(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("store: DBPath must not be empty")
	}

	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	poll := cfg.PollInterval
	if poll == 0 {
		poll = 2 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		db:             db,
		embedder:       cfg.Embedder,
		embeddingModel: cfg.EmbeddingModel,
		maxAttempts:    maxAttempts,
		pollInterval:   poll,
		now:            now,
		notifyCh:       make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
	}, nil
}

// Close stops the workers, if running, and closes the database.
func (s *Store) Close() error {
	s.Stop()
	return s.db.Close()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}
