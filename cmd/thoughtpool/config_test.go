package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := loadConfig(filepath.Join(home, "nope.toml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Classifier.Backend != backendRAG {
		t.Errorf("backend = %q", cfg.Classifier.Backend)
	}
	if cfg.Classifier.Remap["relationships"] != "personal" {
		t.Errorf("remap = %v", cfg.Classifier.Remap)
	}
	if cfg.Ollama.URL != "http://localhost:11434" || cfg.Ollama.Model != defaultOllamaModel ||
		cfg.Ollama.EmbeddingModel != defaultEmbeddingModel {
		t.Errorf("ollama = %+v", cfg.Ollama)
	}
	if want := filepath.Join(home, ".local", "state", "thoughtpool", stateDBName); cfg.Store.Path != want {
		t.Errorf("store path = %q, want %q", cfg.Store.Path, want)
	}
	if cfg.HTTP.Addr != defaultHTTPAddr || cfg.Telegram.PollTimeout != defaultPollTimeout {
		t.Errorf("http = %+v, telegram = %+v", cfg.HTTP, cfg.Telegram)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
[telegram]
token = "123:abc"
admin_username = "alice"
admin_chat_id = 42

[store]
path = "/tmp/t.db"

[classifier]
backend = "completion"

[classifier.remap]
work_stuff = "work"

[openai]
model = "ft:davinci-002:notes"

[rag]
examples = 3

[http]
addr = ":9000"
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.AdminUsername != "alice" || cfg.Telegram.AdminChatID != 42 {
		t.Errorf("telegram = %+v", cfg.Telegram)
	}
	if cfg.Store.Path != "/tmp/t.db" || cfg.HTTP.Addr != ":9000" || cfg.RAG.Examples != 3 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Classifier.Backend != backendCompletion || cfg.OpenAI.Model != "ft:davinci-002:notes" {
		t.Errorf("classifier = %+v, openai = %+v", cfg.Classifier, cfg.OpenAI)
	}
	// An explicit remap table replaces the default one.
	if len(cfg.Classifier.Remap) != 1 || cfg.Classifier.Remap["work_stuff"] != "work" {
		t.Errorf("remap = %v", cfg.Classifier.Remap)
	}
	// Unset fields keep their defaults.
	if cfg.Ollama.Model != defaultOllamaModel || cfg.Telegram.PollTimeout != defaultPollTimeout {
		t.Errorf("defaults not applied: %+v %+v", cfg.Ollama, cfg.Telegram)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown backend", "[classifier]\nbackend = \"bert\"\n", "unknown backend"},
		{"completion without model", "[classifier]\nbackend = \"completion\"\n", "needs openai.model"},
		{"bad toml", "[telegram\n", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			_, err := loadConfig(writeConfig(t, tt.content))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestGlobalsOverrideConfig(t *testing.T) {
	path := writeConfig(t, `
[telegram]
token = "from-file"
admin_username = "alice"

[store]
path = "/tmp/file.db"
`)
	g := &Globals{Config: path, Token: "from-flag", DB: "/tmp/flag.db", OpenAIKey: "sk-test"}
	cfg, err := g.config()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Telegram.Token != "from-flag" || cfg.Store.Path != "/tmp/flag.db" || cfg.OpenAI.APIKey != "sk-test" {
		t.Errorf("overrides not applied: %+v %+v %+v", cfg.Telegram, cfg.Store, cfg.OpenAI)
	}
	if cfg.Telegram.AdminUsername != "alice" {
		t.Errorf("admin = %q, file value should survive", cfg.Telegram.AdminUsername)
	}
}
