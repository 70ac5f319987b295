package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lthms/thoughtpool/internal/classify"
	"github.com/lthms/thoughtpool/internal/llm"
	"github.com/lthms/thoughtpool/internal/store"
)

// app bundles the store and classifiers built from the configuration.
type app struct {
	cfg      *Config
	store    *store.Store
	ollama   *llm.Ollama
	pipeline *classify.Pipeline
	asker    *classify.RAG // nil unless the rag backend is selected
}

// openApp opens the store with the Ollama embedder and builds the
// classification pipeline for the configured backend.
func openApp(cfg *Config) (*app, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	ollama := &llm.Ollama{
		URL:            cfg.Ollama.URL,
		Model:          cfg.Ollama.Model,
		EmbeddingModel: cfg.Ollama.EmbeddingModel,
	}

	st, err := store.Open(store.Config{
		DBPath:         cfg.Store.Path,
		Embedder:       ollama,
		EmbeddingModel: cfg.Ollama.EmbeddingModel,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: st, ollama: ollama}
	if err := a.buildPipeline(); err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) buildPipeline() error {
	cfg := a.cfg
	p := &classify.Pipeline{Remap: cfg.Classifier.Remap}

	fields, err := classify.NewFieldsLLM(a.ollama, cfg.Classifier.PromptsDir)
	if err != nil {
		return err
	}
	p.Fields = fields

	switch cfg.Classifier.Backend {
	case backendCompletion:
		p.Categories = &classify.Completion{Gen: &llm.OpenAI{
			BaseURL: cfg.OpenAI.BaseURL,
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
		}}
	default:
		rag, err := classify.NewRAG(a.store, a.ollama, classify.RAGConfig{
			Candidates: cfg.RAG.Candidates,
			Examples:   cfg.RAG.Examples,
			Nearest:    cfg.RAG.Nearest,
			RecentDays: cfg.RAG.RecentDays,
			AskLimit:   cfg.RAG.AskLimit,
			PromptsDir: cfg.Classifier.PromptsDir,
		})
		if err != nil {
			return err
		}
		p.Categories = rag
		a.asker = rag
	}

	slog.Debug("classifier ready", "backend", cfg.Classifier.Backend, "model", a.ollama.Model)
	a.pipeline = p
	return nil
}

// ensureModels pulls missing Ollama models. Failures are logged; the
// pipeline degrades to fallback values while Ollama is unavailable.
func (a *app) ensureModels(ctx context.Context) {
	models := []string{a.cfg.Ollama.EmbeddingModel}
	if a.cfg.Ollama.Model != a.cfg.Ollama.EmbeddingModel {
		models = append(models, a.cfg.Ollama.Model)
	}
	for _, m := range models {
		if err := a.ollama.EnsureModel(ctx, m); err != nil {
			slog.Warn("ollama model unavailable", "model", m, "error", err)
		}
	}
}

func (a *app) Close() error {
	return a.store.Close()
}
