package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Thought statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusIrrelevant = "irrelevant"
)

// Urgency levels.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// DefaultETA is the estimate, in hours, used when none is known.
const DefaultETA = 0.5

// allCap bounds All when the table is large.
const allCap = 1000

// ValidStatus reports whether s is a known thought status.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusDone, StatusIrrelevant:
		return true
	}
	return false
}

// ValidUrgency reports whether u is a known urgency level.
func ValidUrgency(u string) bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// Thought is a captured note.
type Thought struct {
	ID          int64      `json:"id"`
	Text        string     `json:"text"`
	Label       string     `json:"label"`
	Urgency     string     `json:"urgency"`
	Status      string     `json:"status"`
	ETA         float64    `json:"eta"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StatusChange is one row of a thought's status history.
type StatusChange struct {
	ThoughtID int64     `json:"thought_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}

const thoughtColumns = `id, note_text, label, urgency, status, eta, created_at, completed_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanThought(sc scanner) (*Thought, error) {
	var t Thought
	var created string
	var completed sql.NullString
	if err := sc.Scan(&t.ID, &t.Text, &t.Label, &t.Urgency, &t.Status, &t.ETA, &created, &completed); err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(created)
	if completed.Valid && completed.String != "" {
		c := parseTime(completed.String)
		t.CompletedAt = &c
	}
	return &t, nil
}

func (s *Store) queryThoughts(ctx context.Context, query string, args ...any) ([]Thought, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Thought
	for rows.Next() {
		t, err := scanThought(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thought: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// AddThought inserts t and returns its id. Empty status, urgency and ETA
// fall back to open, medium and DefaultETA. When an embedder is configured
// an embedding task is queued for the new row.
func (s *Store) AddThought(ctx context.Context, t Thought) (int64, error) {
	t.Text = strings.TrimSpace(t.Text)
	if t.Text == "" {
		return 0, ErrEmptyText
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	if !ValidStatus(t.Status) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if t.Urgency == "" {
		t.Urgency = UrgencyMedium
	}
	if !ValidUrgency(t.Urgency) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidUrgency, t.Urgency)
	}
	if t.ETA <= 0 {
		t.ETA = DefaultETA
	}

	now := s.timestamp()
	if !t.CreatedAt.IsZero() {
		now = t.CreatedAt.UTC().Format(timeLayout)
	}
	var completed any
	if t.Status == StatusDone {
		completed = now
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO thoughts (note_text, label, urgency, status, eta, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Text, t.Label, t.Urgency, t.Status, t.ETA, now, completed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert thought: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert thought: %w", err)
	}

	slog.Info("store: thought added", "id", id, "label", t.Label, "text", truncateRunes(t.Text, 80))

	if s.embedder != nil {
		s.Enqueue(ctx, taskEmbedThought, strconv.FormatInt(id, 10), 0)
	}
	return id, nil
}

// GetThought returns the thought with the given id.
func (s *Store) GetThought(ctx context.Context, id int64) (*Thought, error) {
	t, err := scanThought(s.db.QueryRowContext(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("thought %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get thought %d: %w", id, err)
	}
	return t, nil
}

// LinkMessage records that a chat message displays a thought. Re-linking a
// message replaces the previous association.
func (s *Store) LinkMessage(ctx context.Context, chatID, messageID, thoughtID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO thought_messages (chat_id, message_id, thought_id) VALUES (?, ?, ?)`,
		chatID, messageID, thoughtID,
	)
	if err != nil {
		return fmt.Errorf("link message: %w", err)
	}
	return nil
}

// ThoughtByMessage resolves the thought displayed by a chat message.
func (s *Store) ThoughtByMessage(ctx context.Context, chatID, messageID int64) (*Thought, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT thought_id FROM thought_messages WHERE chat_id = ? AND message_id = ?`,
		chatID, messageID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %d/%d: %w", chatID, messageID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup message: %w", err)
	}
	return s.GetThought(ctx, id)
}

// RandomOpen returns a random thought that is neither done nor irrelevant.
func (s *Store) RandomOpen(ctx context.Context) (*Thought, error) {
	t, err := scanThought(s.db.QueryRowContext(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts
		 WHERE status NOT IN (?, ?)
		 ORDER BY RANDOM() LIMIT 1`,
		StatusDone, StatusIrrelevant))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("random thought: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("random thought: %w", err)
	}
	return t, nil
}

// UpdateStatus changes a thought's status and returns the updated row.
// Setting the current status is a no-op. Moving to done stamps completed_at;
// moving anywhere else clears it. Every change is appended to the history.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status string) (*Thought, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var old string
	err = tx.QueryRowContext(ctx, `SELECT status FROM thoughts WHERE id = ?`, id).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("thought %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}

	if old != status {
		now := s.timestamp()
		var completed any
		if status == StatusDone {
			completed = now
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE thoughts SET status = ?, completed_at = ? WHERE id = ?`,
			status, completed, id,
		); err != nil {
			return nil, fmt.Errorf("update status: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO status_changes (thought_id, old_status, new_status, changed_at) VALUES (?, ?, ?, ?)`,
			id, old, status, now,
		); err != nil {
			return nil, fmt.Errorf("record status change: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		slog.Info("store: status changed", "id", id, "from", old, "to", status)
	}

	return s.GetThought(ctx, id)
}

// UpdateLabel sets a thought's category label. The thought's embedding is
// left alone; it depends on the text only.
func (s *Store) UpdateLabel(ctx context.Context, id int64, label string) (*Thought, error) {
	return s.updateField(ctx, id, "label", strings.TrimSpace(label))
}

// UpdateUrgency sets a thought's urgency.
func (s *Store) UpdateUrgency(ctx context.Context, id int64, urgency string) (*Thought, error) {
	if !ValidUrgency(urgency) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUrgency, urgency)
	}
	return s.updateField(ctx, id, "urgency", urgency)
}

// UpdateETA sets a thought's estimate in hours.
func (s *Store) UpdateETA(ctx context.Context, id int64, eta float64) (*Thought, error) {
	if eta <= 0 {
		return nil, fmt.Errorf("store: eta must be positive, got %v", eta)
	}
	return s.updateField(ctx, id, "eta", eta)
}

// updateField writes one column when its value differs. column is never
// user-controlled.
func (s *Store) updateField(ctx context.Context, id int64, column string, value any) (*Thought, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE thoughts SET `+column+` = ? WHERE id = ? AND `+column+` IS NOT ?`,
		value, id, value,
	)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", column, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("store: thought updated", "id", id, "field", column, "value", value)
	}
	return s.GetThought(ctx, id)
}

// LastN returns the n most recently created thoughts, newest first.
func (s *Store) LastN(ctx context.Context, n int) ([]Thought, error) {
	if n <= 0 {
		return nil, nil
	}
	out, err := s.queryThoughts(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("last thoughts: %w", err)
	}
	return out, nil
}

// LastNWithStatus is LastN restricted to one status. An empty status
// matches every thought.
func (s *Store) LastNWithStatus(ctx context.Context, n int, status string) ([]Thought, error) {
	if status == "" {
		return s.LastN(ctx, n)
	}
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if n <= 0 {
		return nil, nil
	}
	out, err := s.queryThoughts(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts WHERE status = ? ORDER BY id DESC LIMIT ?`, status, n)
	if err != nil {
		return nil, fmt.Errorf("last thoughts: %w", err)
	}
	return out, nil
}

// RecentOpen returns open thoughts created within the last days days,
// oldest first.
func (s *Store) RecentOpen(ctx context.Context, days int) ([]Thought, error) {
	since := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour).Format(timeLayout)
	out, err := s.queryThoughts(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts
		 WHERE status = ? AND created_at > ?
		 ORDER BY id ASC`,
		StatusOpen, since)
	if err != nil {
		return nil, fmt.Errorf("recent thoughts: %w", err)
	}
	return out, nil
}

// Active returns every thought that is open or in progress, oldest first.
func (s *Store) Active(ctx context.Context) ([]Thought, error) {
	out, err := s.queryThoughts(ctx,
		`SELECT `+thoughtColumns+` FROM thoughts
		 WHERE status IN (?, ?)
		 ORDER BY id ASC`,
		StatusOpen, StatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("active thoughts: %w", err)
	}
	return out, nil
}

// All returns every thought in id order, or the newest 1000 (newest first)
// once the table grows beyond that.
func (s *Store) All(ctx context.Context) ([]Thought, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM thoughts`).Scan(&count); err != nil {
		return nil, fmt.Errorf("count thoughts: %w", err)
	}
	query := `SELECT ` + thoughtColumns + ` FROM thoughts ORDER BY id ASC`
	if count > allCap {
		query = `SELECT ` + thoughtColumns + ` FROM thoughts ORDER BY id DESC LIMIT ` + strconv.Itoa(allCap)
	}
	out, err := s.queryThoughts(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("all thoughts: %w", err)
	}
	return out, nil
}

// Labels returns the distinct non-empty labels in first-use order.
func (s *Store) Labels(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label FROM thoughts WHERE label != '' GROUP BY label ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var l string
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// StatusHistory returns a thought's status changes, oldest first.
func (s *Store) StatusHistory(ctx context.Context, id int64) ([]StatusChange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT thought_id, old_status, new_status, changed_at FROM status_changes
		 WHERE thought_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("status history: %w", err)
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var c StatusChange
		var at string
		if err := rows.Scan(&c.ThoughtID, &c.From, &c.To, &at); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		c.ChangedAt = parseTime(at)
		out = append(out, c)
	}
	return out, rows.Err()
}

// truncateRunes truncates s to n runes, appending "..." if truncated.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
