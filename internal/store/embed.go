package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
)

// CategoryMatch is a category ranked by similarity to a query.
type CategoryMatch struct {
	Category
	Score float64 `json:"score"`
}

// ThoughtMatch is a thought ranked by similarity to a query.
type ThoughtMatch struct {
	Thought
	Score float64 `json:"score"`
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 if either vector has zero magnitude.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// embeddingToBlob serializes a float64 slice into a little-endian blob.
func embeddingToBlob(emb []float64) []byte {
	buf := make([]byte, len(emb)*8)
	for i, v := range emb {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func blobToEmbedding(blob []byte) []float64 {
	n := len(blob) / 8
	emb := make([]float64, n)
	for i := 0; i < n; i++ {
		emb[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return emb
}

func (s *Store) embedText(ctx context.Context, text string) ([]float64, error) {
	if s.embedder == nil {
		return nil, ErrNoEmbedder
	}
	embs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(embs) == 0 || len(embs[0]) == 0 {
		return nil, fmt.Errorf("embed: empty result")
	}
	return embs[0], nil
}

func (s *Store) handleEmbedThought(ctx context.Context, payload string) error {
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return fmt.Errorf("bad payload %q: %w", payload, err)
	}
	t, err := s.GetThought(ctx, id)
	if err != nil {
		return err
	}
	emb, err := s.embedText(ctx, t.Text)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE thoughts SET embedding = ?, model = ? WHERE id = ?`,
		embeddingToBlob(emb), s.embeddingModel, id)
	if err != nil {
		return fmt.Errorf("store thought embedding: %w", err)
	}
	return nil
}

func (s *Store) handleEmbedCategory(ctx context.Context, payload string) error {
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		return fmt.Errorf("bad payload %q: %w", payload, err)
	}
	c, err := s.getCategory(ctx, id)
	if err != nil {
		return err
	}
	emb, err := s.embedText(ctx, c.embedText())
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE categories SET embedding = ?, model = ? WHERE id = ?`,
		embeddingToBlob(emb), s.embeddingModel, id)
	if err != nil {
		return fmt.Errorf("store category embedding: %w", err)
	}
	return nil
}

// NearestCategories returns up to k categories most similar to text,
// best first. Only embeddings of the current model are considered.
func (s *Store) NearestCategories(ctx context.Context, text string, k int) ([]CategoryMatch, error) {
	queryEmb, err := s.embedText(ctx, text)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, show_category, semantic_category, embedding FROM categories
		 WHERE embedding IS NOT NULL AND model = ?`,
		s.embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var out []CategoryMatch
	for rows.Next() {
		var m CategoryMatch
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Path, &m.Semantic, &blob); err != nil {
			slog.Warn("store: scan category", "error", err)
			continue
		}
		m.Score = cosineSimilarity(queryEmb, blobToEmbedding(blob))
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// NearestThoughts returns up to k labelled thoughts most similar to text,
// best first.
func (s *Store) NearestThoughts(ctx context.Context, text string, k int) ([]ThoughtMatch, error) {
	queryEmb, err := s.embedText(ctx, text)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+thoughtColumns+`, embedding FROM thoughts
		 WHERE label != '' AND embedding IS NOT NULL AND model = ?`,
		s.embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("query thoughts: %w", err)
	}
	defer rows.Close()

	var out []ThoughtMatch
	for rows.Next() {
		var blob []byte
		t, err := scanThought(rowWithExtra{rows, &blob})
		if err != nil {
			slog.Warn("store: scan thought", "error", err)
			continue
		}
		out = append(out, ThoughtMatch{Thought: *t, Score: cosineSimilarity(queryEmb, blobToEmbedding(blob))})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thoughts: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// rowWithExtra appends extra scan destinations after the thought columns.
type rowWithExtra struct {
	sc    scanner
	extra any
}

func (r rowWithExtra) Scan(dest ...any) error {
	return r.sc.Scan(append(dest, r.extra)...)
}

// Backfill queues embedding tasks for every thought and category that has
// no embedding for the current model and no task already waiting. It
// returns the number of tasks queued.
func (s *Store) Backfill(ctx context.Context) (int, error) {
	if s.embedder == nil {
		return 0, ErrNoEmbedder
	}

	targets := []struct {
		taskType string
		query    string
	}{
		{taskEmbedThought, `SELECT id FROM thoughts WHERE embedding IS NULL OR model != ?`},
		{taskEmbedCategory, `SELECT id FROM categories WHERE embedding IS NULL OR model != ?`},
	}

	queued := 0
	for _, tg := range targets {
		ids, err := s.selectIDs(ctx, tg.query, s.embeddingModel)
		if err != nil {
			return queued, fmt.Errorf("backfill %s: %w", tg.taskType, err)
		}
		for _, id := range ids {
			payload := strconv.FormatInt(id, 10)
			if s.hasPendingTask(ctx, tg.taskType, payload) {
				continue
			}
			s.Enqueue(ctx, tg.taskType, payload, -1)
			queued++
		}
	}
	if queued > 0 {
		slog.Info("store: backfill queued", "count", queued)
	}
	return queued, nil
}

func (s *Store) selectIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
