package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
)

// Globals are the flags shared by every command. Flags and environment
// variables take precedence over the config file.
type Globals struct {
	Debug     bool   `env:"THOUGHTPOOL_DEBUG" help:"Enable debug logging."`
	Config    string `env:"THOUGHTPOOL_CONFIG" type:"path" help:"Config file (default ~/.config/thoughtpool/config.toml)."`
	Token     string `env:"THOUGHTPOOL_TOKEN" help:"Telegram bot token."`
	Admin     string `env:"THOUGHTPOOL_ADMIN" help:"Telegram username allowed to use the bot."`
	DB        string `env:"THOUGHTPOOL_DB" type:"path" help:"SQLite database path."`
	OpenAIKey string `name:"openai-api-key" env:"THOUGHTPOOL_OPENAI_API_KEY" help:"API key for the completion backend."`
}

// config loads the config file and applies flag overrides.
func (g *Globals) config() (*Config, error) {
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Token != "" {
		cfg.Telegram.Token = g.Token
	}
	if g.Admin != "" {
		cfg.Telegram.AdminUsername = g.Admin
	}
	if g.DB != "" {
		cfg.Store.Path = g.DB
	}
	if g.OpenAIKey != "" {
		cfg.OpenAI.APIKey = g.OpenAIKey
	}
	return cfg, nil
}

// open loads the configuration and opens the app.
func (g *Globals) open() (*app, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	return openApp(cfg)
}

// CLI is the top-level command structure for thoughtpool.
type CLI struct {
	Globals

	Serve   ServeCmd   `cmd:"" help:"Run the Telegram bot and the HTTP dashboard."`
	Add     AddCmd     `cmd:"" help:"Capture a thought from the command line."`
	List    ListCmd    `cmd:"" help:"List recent thoughts."`
	Status  StatusCmd  `cmd:"" help:"Change the status of a thought."`
	Tree    TreeCmd    `cmd:"" help:"Write the category tree as an HTML document."`
	Stats   StatsCmd   `cmd:"" help:"Show the thought dashboard."`
	Import  ImportCmd  `cmd:"" help:"Import categories or thoughts from CSV."`
	Ask     AskCmd     `cmd:"" help:"Ask a question about recent open thoughts."`
	Browse  BrowseCmd  `cmd:"" help:"Browse and update thoughts in a terminal UI."`
	Logs    LogsCmd    `cmd:"" help:"Follow the logs of a running serve."`
	MCP     MCPCmd     `cmd:"" name:"mcp" help:"Serve the MCP tools on stdio."`
	Push    PushCmd    `cmd:"" help:"Send a random open thought to the admin chat."`
	Reindex ReindexCmd `cmd:"" help:"Embed thoughts and categories that lack a current embedding."`
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	cli := CLI{}
	parser, err := kong.New(&cli,
		kong.Name("thoughtpool"),
		kong.Description("Capture, classify and revisit your thoughts from Telegram."),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			os.Exit(code)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "thoughtpool: %v\n", err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	setupLogger(cli.Debug)

	err = ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
