package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lthms/thoughtpool/internal/cattree"
)

// Category is a known category path. Semantic is an optional longer
// description used for embedding instead of the path itself.
type Category struct {
	ID       int64  `json:"id"`
	Path     string `json:"path"`
	Semantic string `json:"semantic,omitempty"`
}

// embedText is what gets embedded for the category.
func (c Category) embedText() string {
	if c.Semantic != "" {
		return c.Semantic
	}
	return c.Path
}

// NormalizePath validates a category path and rejoins its trimmed segments.
func NormalizePath(path string) (string, error) {
	segs, err := cattree.SplitPath(path)
	if err != nil {
		return "", err
	}
	return strings.Join(segs, cattree.Separator), nil
}

// AddCategory inserts a category unless one with the same path exists.
// It reports whether a row was created.
func (s *Store) AddCategory(ctx context.Context, path, semantic string) (bool, error) {
	norm, err := NormalizePath(path)
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO categories (show_category, semantic_category) VALUES (?, ?)`,
		norm, strings.TrimSpace(semantic),
	)
	if err != nil {
		return false, fmt.Errorf("insert category: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return true, fmt.Errorf("insert category: %w", err)
	}

	slog.Debug("store: category added", "id", id, "path", norm)
	if s.embedder != nil {
		s.Enqueue(ctx, taskEmbedCategory, strconv.FormatInt(id, 10), 0)
	}
	return true, nil
}

// Categories returns every stored category in id order.
func (s *Store) Categories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, show_category, semantic_category FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Path, &c.Semantic); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CategoryPaths lists stored category paths, followed by any thought labels
// that are not already among them.
func (s *Store) CategoryPaths(ctx context.Context) ([]string, error) {
	cats, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}
	labels, err := s.Labels(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(cats)+len(labels))
	out := make([]string, 0, len(cats)+len(labels))
	for _, c := range cats {
		if !seen[c.Path] {
			seen[c.Path] = true
			out = append(out, c.Path)
		}
	}
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *Store) getCategory(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := s.db.QueryRowContext(ctx,
		`SELECT id, show_category, semantic_category FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Path, &c.Semantic)
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return &c, nil
}
