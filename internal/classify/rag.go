package classify

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/lthms/thoughtpool/internal/llm"
	"github.com/lthms/thoughtpool/internal/store"
)

// Source is the slice of the note store the RAG predictor reads.
type Source interface {
	NearestCategories(ctx context.Context, text string, k int) ([]store.CategoryMatch, error)
	NearestThoughts(ctx context.Context, text string, k int) ([]store.ThoughtMatch, error)
	RecentOpen(ctx context.Context, days int) ([]store.Thought, error)
}

// RAGConfig tunes retrieval.
type RAGConfig struct {
	Candidates  int    // nearest categories offered to the model (0 = 40)
	Examples    int    // few-shot examples (0 = 5)
	Nearest     int    // categories matched against the answer (0 = 3)
	RecentDays  int    // window for Ask (0 = 60)
	AskLimit    int    // notes sampled into an Ask prompt (0 = 50)
	PromptsDir  string // optional prompt overrides
	ModelFamily string // model name used to pick answer post-processing
}

func (c *RAGConfig) applyDefaults() {
	if c.Candidates == 0 {
		c.Candidates = 40
	}
	if c.Examples == 0 {
		c.Examples = 5
	}
	if c.Nearest == 0 {
		c.Nearest = 3
	}
	if c.RecentDays == 0 {
		c.RecentDays = 60
	}
	if c.AskLimit == 0 {
		c.AskLimit = 50
	}
}

// RAG predicts categories with a few-shot prompt built from the most
// similar stored categories and labelled notes.
type RAG struct {
	src        Source
	gen        llm.Generator
	cfg        RAGConfig
	categorize *Prompt
	query      *Prompt
	now        func() time.Time
	rnd        *rand.Rand
}

type example struct {
	Input  string
	Output string
}

type categorizeData struct {
	Candidates []string
	Examples   []example
	Note       string
}

type queryData struct {
	Query string
	Notes []store.Thought
}

// NewRAG builds a RAG predictor. When cfg.ModelFamily is empty the model
// name is taken from gen if it reports one.
func NewRAG(src Source, gen llm.Generator, cfg RAGConfig) (*RAG, error) {
	cfg.applyDefaults()
	if cfg.ModelFamily == "" {
		if n, ok := gen.(llm.Named); ok {
			cfg.ModelFamily = n.ModelName()
		}
	}

	categorize, err := LoadPrompt(cfg.PromptsDir, PromptCategorize)
	if err != nil {
		return nil, err
	}
	query, err := LoadPrompt(cfg.PromptsDir, PromptQuery)
	if err != nil {
		return nil, err
	}
	return &RAG{
		src:        src,
		gen:        gen,
		cfg:        cfg,
		categorize: categorize,
		query:      query,
		now:        time.Now,
		rnd:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}, nil
}

// PredictCategory asks the model for a category and snaps the answer to the
// nearest existing one.
func (r *RAG) PredictCategory(ctx context.Context, note string) (CategoryResult, error) {
	nearest, err := r.src.NearestCategories(ctx, note, r.cfg.Candidates)
	if err != nil {
		return CategoryResult{}, fmt.Errorf("candidate categories: %w", err)
	}
	candidates := make([]string, 0, len(nearest))
	for _, m := range nearest {
		candidates = append(candidates, m.Path)
	}
	candidates = dedupe(candidates)

	similar, err := r.src.NearestThoughts(ctx, note, r.cfg.Examples)
	if err != nil {
		return CategoryResult{}, fmt.Errorf("examples: %w", err)
	}
	examples := make([]example, 0, len(similar))
	for _, m := range similar {
		examples = append(examples, example{Input: m.Text, Output: m.Label})
	}

	req, err := r.categorize.Request(categorizeData{Candidates: candidates, Examples: examples, Note: note})
	if err != nil {
		return CategoryResult{}, err
	}
	slog.Debug("rag: categorize prompt", "prompt", req.Prompt)

	reply, err := r.gen.Generate(ctx, req)
	if err != nil {
		return CategoryResult{}, fmt.Errorf("generate: %w", err)
	}
	answer := extractCategory(r.cfg.ModelFamily, reply)
	slog.Debug("rag: model answer", "raw", reply, "processed", answer)
	if answer == "" {
		answer = FallbackCategory
	}

	snapped, err := r.src.NearestCategories(ctx, answer, r.cfg.Nearest)
	if err != nil {
		return CategoryResult{}, fmt.Errorf("match answer: %w", err)
	}
	closest := make([]string, 0, len(snapped))
	for _, m := range snapped {
		closest = append(closest, m.Path)
	}

	category := answer
	if len(closest) > 0 {
		category = closest[0]
	}

	top := candidates
	if len(top) > 3 {
		top = top[:3]
	}
	choices := make([]string, 0, len(closest)+len(top)+2)
	choices = append(choices, closest...)
	choices = append(choices, top...)
	choices = append(choices, FallbackCategory, answer)

	slog.Info("rag: category predicted", "category", category, "answer", answer)
	return CategoryResult{Category: category, Choices: dedupe(choices)}, nil
}

// Ask answers a free-form question from the open notes of the last
// RecentDays days. When there are more than AskLimit of them a
// recency-weighted sample is used.
func (r *RAG) Ask(ctx context.Context, question string) (string, error) {
	notes, err := r.src.RecentOpen(ctx, r.cfg.RecentDays)
	if err != nil {
		return "", fmt.Errorf("recent notes: %w", err)
	}
	if len(notes) == 0 {
		return fmt.Sprintf("No notes found in the last %d days.", r.cfg.RecentDays), nil
	}
	if len(notes) > r.cfg.AskLimit {
		slog.Debug("rag: sampling notes for question", "available", len(notes), "limit", r.cfg.AskLimit)
		notes = sampleRecent(notes, r.cfg.AskLimit, r.now(), r.rnd)
	}

	req, err := r.query.Request(queryData{Query: question, Notes: notes})
	if err != nil {
		return "", err
	}
	reply, err := r.gen.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return reply, nil
}
