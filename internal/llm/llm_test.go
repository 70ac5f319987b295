package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		t.Errorf("decode request: %v", err)
	}
	return m
}

func TestOllamaGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		got = decodeBody(t, r)
		json.NewEncoder(w).Encode(map[string]any{"response": "  Category: Health  \n"})
	}))
	defer srv.Close()

	o := &Ollama{URL: srv.URL, Model: "mistral"}
	text, err := o.Generate(context.Background(), Request{
		Prompt:      "hi",
		Temperature: 0.1,
		MaxTokens:   100,
		Stop:        []string{"\n\n"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if text != "Category: Health" {
		t.Errorf("text = %q", text)
	}
	if got["model"] != "mistral" || got["prompt"] != "hi" || got["stream"] != false {
		t.Errorf("request = %v", got)
	}
	opts, _ := got["options"].(map[string]any)
	if opts["temperature"] != 0.1 || opts["num_predict"] != float64(100) {
		t.Errorf("options = %v", opts)
	}
	if _, ok := opts["top_p"]; ok {
		t.Error("zero top_p should be omitted")
	}
}

func TestOllamaGenerate_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response": "   "})
	}))
	defer srv.Close()

	o := &Ollama{URL: srv.URL, Model: "m"}
	if _, err := o.Generate(context.Background(), Request{Prompt: "x"}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("blank response: %v", err)
	}

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer failing.Close()
	o.URL = failing.URL
	_, err := o.Generate(context.Background(), Request{Prompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "500") || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("http error = %v", err)
	}
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %s", r.URL.Path)
		}
		body := decodeBody(t, r)
		if body["model"] != "nomic-embed-text" {
			t.Errorf("model = %v", body["model"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"embeddings": [][]float64{{1, 0}, {0, 1}},
		})
	}))
	defer srv.Close()

	o := &Ollama{URL: srv.URL}
	vecs, err := o.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 || vecs[1][1] != 1 {
		t.Errorf("vecs = %v", vecs)
	}

	if _, err := o.Embed(context.Background(), []string{"a", "b", "c"}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("count mismatch: %v", err)
	}
}

func TestOllamaEnsureModel(t *testing.T) {
	pulled := ""
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		switch r.URL.Path {
		case "/api/show":
			if body["name"] == "present" {
				w.WriteHeader(http.StatusOK)
				return
			}
			http.NotFound(w, r)
		case "/api/pull":
			pulled, _ = body["name"].(string)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	o := &Ollama{URL: srv.URL}
	ctx := context.Background()
	if err := o.EnsureModel(ctx, "present"); err != nil {
		t.Fatal(err)
	}
	if pulled != "" {
		t.Errorf("pulled %q for a present model", pulled)
	}
	if err := o.EnsureModel(ctx, "missing"); err != nil {
		t.Fatal(err)
	}
	if pulled != "missing" {
		t.Errorf("pulled = %q, want missing", pulled)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth = %q", got)
		}
		body := decodeBody(t, r)
		if body["model"] != "ft-model" || body["max_tokens"] != float64(10) {
			t.Errorf("body = %v", body)
		}
		stop, _ := body["stop"].([]any)
		if len(stop) != 1 || stop[0] != "\n" {
			t.Errorf("stop = %v", body["stop"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"text": " Category: health_1"}},
		})
	}))
	defer srv.Close()

	c := &OpenAI{BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "ft-model"}
	text, err := c.Generate(context.Background(), Request{Prompt: "Note: x ", MaxTokens: 10, Temperature: 0.9, Stop: []string{"\n"}})
	if err != nil {
		t.Fatal(err)
	}
	if text != " Category: health_1" {
		t.Errorf("text = %q", text)
	}
}

func TestOpenAIGenerate_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := &OpenAI{BaseURL: srv.URL, Model: "m"}
	if _, err := c.Generate(context.Background(), Request{Prompt: "x"}); err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("unauthorized: %v", err)
	}
	c.APIKey = "k"
	if _, err := c.Generate(context.Background(), Request{Prompt: "x"}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("no choices: %v", err)
	}
}

func TestOpenAIEmbed_OrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []any{
				map[string]any{"index": 1, "embedding": []float64{0, 1}},
				map[string]any{"index": 0, "embedding": []float64{1, 0}},
			},
		})
	}))
	defer srv.Close()

	c := &OpenAI{BaseURL: srv.URL}
	vecs, err := c.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vecs = %v", vecs)
	}
}
