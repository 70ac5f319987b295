// Package report derives read-only views from the note store: the category
// tree document and usage dashboards.
package report

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lthms/thoughtpool/internal/cattree"
	"github.com/lthms/thoughtpool/internal/store"
)

// UnlabelledCategory holds active thoughts that have no label.
const UnlabelledCategory = "Note"

// TreeSource is what CategoryTree reads from the store.
type TreeSource interface {
	CategoryPaths(ctx context.Context) ([]string, error)
	Active(ctx context.Context) ([]store.Thought, error)
}

// CategoryTree builds a fresh tree from every known category path, with
// each open or in-progress thought attached as a todo under its label.
// Paths that do not parse are logged and skipped.
func CategoryTree(ctx context.Context, src TreeSource) (*cattree.Tree, error) {
	paths, err := src.CategoryPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("category paths: %w", err)
	}
	thoughts, err := src.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("active thoughts: %w", err)
	}

	tree := cattree.New()
	for _, p := range paths {
		if _, err := tree.Ensure(p); err != nil {
			slog.Warn("report: skipping category", "path", p, "error", err)
		}
	}
	for _, t := range thoughts {
		label := t.Label
		if label == "" {
			label = UnlabelledCategory
		}
		if err := tree.AddTodo(label, t.Text); err != nil {
			slog.Warn("report: skipping thought", "id", t.ID, "label", label, "error", err)
		}
	}
	return tree, nil
}
