package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	defaultOllamaModel    = "orca-mini"
	defaultEmbeddingModel = "nomic-embed-text"
	defaultHTTPAddr       = "127.0.0.1:2710"
	defaultPollTimeout    = 60
	backendRAG            = "rag"
	backendCompletion     = "completion"
	configFileName        = "config.toml"
	stateDBName           = "thoughts.db"
)

// Config holds user configuration loaded from
// ~/.config/thoughtpool/config.toml.
type Config struct {
	Telegram   TelegramConfig   `toml:"telegram"`
	Store      StoreConfig      `toml:"store"`
	Classifier ClassifierConfig `toml:"classifier"`
	Ollama     OllamaConfig     `toml:"ollama"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	RAG        RAGConfig        `toml:"rag"`
	HTTP       HTTPConfig       `toml:"http"`
}

// TelegramConfig configures the chat bot.
type TelegramConfig struct {
	Token         string `toml:"token"`
	AdminUsername string `toml:"admin_username"`
	AdminChatID   int64  `toml:"admin_chat_id"`
	PollTimeout   int    `toml:"poll_timeout"`
}

// StoreConfig locates the database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// ClassifierConfig selects the category backend.
type ClassifierConfig struct {
	Backend    string            `toml:"backend"` // rag | completion
	Remap      map[string]string `toml:"remap"`
	PromptsDir string            `toml:"prompts_dir"`
}

// OllamaConfig configures the local model server used for retrieval
// prompts, field estimation and embeddings.
type OllamaConfig struct {
	URL            string `toml:"url"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
}

// OpenAIConfig configures the fine-tuned completion backend.
type OpenAIConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// RAGConfig tunes retrieval. Zero values select the classifier defaults.
type RAGConfig struct {
	Examples   int `toml:"examples"`
	Candidates int `toml:"candidates"`
	Nearest    int `toml:"nearest"`
	RecentDays int `toml:"recent_days"`
	AskLimit   int `toml:"ask_limit"`
}

// HTTPConfig configures the dashboard and MCP server.
type HTTPConfig struct {
	Addr string `toml:"addr"`
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".config", "thoughtpool", configFileName), nil
}

func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".local", "state", "thoughtpool", stateDBName), nil
}

// loadConfig reads the config at path, or the default location when path
// is empty, and applies defaults. A missing file yields the defaults.
func loadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

func (c *Config) applyDefaults() error {
	if c.Store.Path == "" {
		p, err := defaultDBPath()
		if err != nil {
			return err
		}
		c.Store.Path = p
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = defaultPollTimeout
	}
	if c.Classifier.Backend == "" {
		c.Classifier.Backend = backendRAG
	}
	if c.Classifier.Remap == nil {
		c.Classifier.Remap = map[string]string{"relationships": "personal"}
	}
	if c.Ollama.URL == "" {
		c.Ollama.URL = "http://localhost:11434"
	}
	if c.Ollama.Model == "" {
		c.Ollama.Model = defaultOllamaModel
	}
	if c.Ollama.EmbeddingModel == "" {
		c.Ollama.EmbeddingModel = defaultEmbeddingModel
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = defaultHTTPAddr
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Classifier.Backend {
	case backendRAG:
	case backendCompletion:
		if c.OpenAI.Model == "" {
			return fmt.Errorf("classifier: backend %q needs openai.model", backendCompletion)
		}
	default:
		return fmt.Errorf("classifier: unknown backend %q", c.Classifier.Backend)
	}
	return nil
}
