package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// DefaultOllamaURL is where a local Ollama server listens.
const DefaultOllamaURL = "http://localhost:11434"

// Ollama implements Generator and Embedder via the Ollama HTTP API.
type Ollama struct {
	URL            string
	Model          string
	EmbeddingModel string
	Client         *http.Client // nil = http.DefaultClient
}

func (o *Ollama) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

func (o *Ollama) baseURL() string {
	if o.URL == "" {
		return DefaultOllamaURL
	}
	return strings.TrimRight(o.URL, "/")
}

// ModelName returns the generation model.
func (o *Ollama) ModelName() string {
	return o.Model
}

// post sends a JSON body and returns the response body of a 200 answer.
func (o *Ollama) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL()+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client().Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read ollama response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// Generate sends a non-streaming prompt to /api/generate and returns the
// trimmed response text.
func (o *Ollama) Generate(ctx context.Context, r Request) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	options := map[string]any{}
	if r.Temperature != 0 {
		options["temperature"] = r.Temperature
	}
	if r.TopP != 0 {
		options["top_p"] = r.TopP
	}
	if r.MaxTokens != 0 {
		options["num_predict"] = r.MaxTokens
	}
	if r.RepeatPenalty != 0 {
		options["repeat_penalty"] = r.RepeatPenalty
	}
	if len(r.Stop) > 0 {
		options["stop"] = r.Stop
	}

	payload := map[string]any{
		"model":  o.Model,
		"prompt": r.Prompt,
		"stream": false,
	}
	if len(options) > 0 {
		payload["options"] = options
	}

	body, status, err := o.post(ctx, "/api/generate", payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("ollama returned %d: %s", status, string(body))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("parse ollama response: %w", err)
	}

	text := strings.TrimSpace(result.Response)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Embed sends texts to /api/embed and returns one vector per text.
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	model := o.EmbeddingModel
	if model == "" {
		model = "nomic-embed-text"
	}

	body, status, err := o.post(ctx, "/api/embed", map[string]any{
		"model": model,
		"input": texts,
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("ollama embed returned %d: %s", status, string(body))
	}

	var result struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse ollama embed response: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d texts: %w", len(result.Embeddings), len(texts), ErrEmptyResponse)
	}
	return result.Embeddings, nil
}

// EnsureModel checks that model exists locally and pulls it otherwise.
func (o *Ollama) EnsureModel(ctx context.Context, model string) error {
	body, status, err := o.post(ctx, "/api/show", map[string]string{"name": model})
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		slog.Info("llm: ollama model not found locally, pulling", "model", model)
		return o.pull(ctx, model)
	}
	return fmt.Errorf("ollama /api/show returned unexpected status %d for %s: %s", status, model, string(body))
}

func (o *Ollama) pull(ctx context.Context, model string) error {
	slog.Info("llm: pulling ollama model (this may take a while)", "model", model)

	body, status, err := o.post(ctx, "/api/pull", map[string]any{
		"name":   model,
		"stream": false,
	})
	if err != nil {
		return fmt.Errorf("ollama pull request failed: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("ollama pull failed with status %d: %s", status, string(body))
	}

	slog.Info("llm: ollama model pulled", "model", model)
	return nil
}
