// Package importer loads categories and thoughts from CSV exports.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/lthms/thoughtpool/internal/cattree"
	"github.com/lthms/thoughtpool/internal/store"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// Sink receives imported rows.
type Sink interface {
	AddCategory(ctx context.Context, path, semantic string) (bool, error)
	AddThought(ctx context.Context, t store.Thought) (int64, error)
}

// Result counts what an import did.
type Result struct {
	Added   int
	Skipped int
}

type header map[string]int

func readHeader(r *csv.Reader) (header, error) {
	rec, err := r.Read()
	if err == io.EOF {
		return header{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	h := make(header, len(rec))
	for i, name := range rec {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h, nil
}

// col returns the index of the first present name, or -1.
func (h header) col(names ...string) int {
	for _, n := range names {
		if i, ok := h[n]; ok {
			return i
		}
	}
	return -1
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// Categories imports a CSV with a show_category column and an optional
// semantic_category column. Existing and invalid paths count as skipped.
func Categories(ctx context.Context, sink Sink, r io.Reader) (Result, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return Result{}, err
	}
	show := h.col("show_category")
	if show < 0 && len(h) > 0 {
		return Result{}, fmt.Errorf("%w: show_category", ErrMissingColumn)
	}
	semantic := h.col("semantic_category")

	var res Result
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("read categories: %w", err)
		}
		path := field(rec, show)
		if path == "" {
			res.Skipped++
			continue
		}
		created, err := sink.AddCategory(ctx, path, field(rec, semantic))
		if err != nil {
			if errors.Is(err, cattree.ErrEmptyPath) || errors.Is(err, cattree.ErrEmptySegment) {
				slog.Warn("importer: skipping category", "path", path, "error", err)
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("add category %q: %w", path, err)
		}
		if created {
			res.Added++
		} else {
			res.Skipped++
		}
	}
}

// Thoughts imports a CSV of notes. The text column is thought or
// note_text, the label column class or label; urgency, status and eta are
// optional. Rows with invalid values are skipped.
func Thoughts(ctx context.Context, sink Sink, r io.Reader) (Result, error) {
	cr := newReader(r)
	h, err := readHeader(cr)
	if err != nil {
		return Result{}, err
	}
	text := h.col("thought", "note_text")
	if text < 0 && len(h) > 0 {
		return Result{}, fmt.Errorf("%w: thought", ErrMissingColumn)
	}
	label := h.col("class", "label")
	urgency := h.col("urgency")
	status := h.col("status")
	eta := h.col("eta")

	var res Result
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return res, fmt.Errorf("read thoughts: %w", err)
		}

		t := store.Thought{
			Text:    field(rec, text),
			Label:   field(rec, label),
			Urgency: strings.ToLower(field(rec, urgency)),
			Status:  strings.ToLower(field(rec, status)),
		}
		if t.Text == "" {
			res.Skipped++
			continue
		}
		if v := field(rec, eta); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				slog.Warn("importer: bad eta", "line", line, "eta", v)
				res.Skipped++
				continue
			}
			t.ETA = f
		}

		if _, err := sink.AddThought(ctx, t); err != nil {
			if errors.Is(err, store.ErrInvalidStatus) || errors.Is(err, store.ErrInvalidUrgency) {
				slog.Warn("importer: skipping thought", "line", line, "error", err)
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("add thought on line %d: %w", line, err)
		}
		res.Added++
	}
}
