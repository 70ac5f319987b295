package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultOpenAIURL is the public OpenAI API base.
const DefaultOpenAIURL = "https://api.openai.com/v1"

// OpenAI implements Generator over the legacy /completions endpoint, which
// fine-tuned completion models are served from, and Embedder over
// /embeddings. Any OpenAI-compatible server works.
type OpenAI struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Client         *http.Client // nil = 60s timeout client
}

func (c *OpenAI) client() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (c *OpenAI) baseURL() string {
	if c.BaseURL == "" {
		return DefaultOpenAIURL
	}
	return strings.TrimRight(c.BaseURL, "/")
}

// ModelName returns the completion model.
func (c *OpenAI) ModelName() string {
	return c.Model
}

func (c *OpenAI) do(ctx context.Context, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL()+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai %s http %d: %s", path, resp.StatusCode, string(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse openai %s response: %w", path, err)
	}
	return nil
}

// Generate requests a completion and returns the first choice's text.
// The text is not trimmed: completion models answer with a leading space.
func (c *OpenAI) Generate(ctx context.Context, r Request) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	payload := map[string]any{
		"model":  c.Model,
		"prompt": r.Prompt,
	}
	if r.Temperature != 0 {
		payload["temperature"] = r.Temperature
	}
	if r.TopP != 0 {
		payload["top_p"] = r.TopP
	}
	if r.MaxTokens != 0 {
		payload["max_tokens"] = r.MaxTokens
	}
	if len(r.Stop) > 0 {
		payload["stop"] = r.Stop
	}

	var out struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	}
	if err := c.do(ctx, "/completions", payload, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Text) == "" {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Text, nil
}

// Embed requests embeddings for texts.
func (c *OpenAI) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	model := c.EmbeddingModel
	if model == "" {
		model = "text-embedding-3-small"
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := c.do(ctx, "/embeddings", map[string]any{"model": model, "input": texts}, &out); err != nil {
		return nil, err
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d texts: %w", len(out.Data), len(texts), ErrEmptyResponse)
	}

	res := make([][]float64, len(texts))
	for i, d := range out.Data {
		idx := d.Index
		if idx < 0 || idx >= len(res) || res[idx] != nil {
			idx = i
		}
		res[idx] = d.Embedding
	}
	return res, nil
}
