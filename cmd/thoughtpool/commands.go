package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/lthms/thoughtpool/internal/bot"
	"github.com/lthms/thoughtpool/internal/importer"
	"github.com/lthms/thoughtpool/internal/report"
	"github.com/lthms/thoughtpool/internal/store"
)

// ServeCmd runs the bot, the embedding workers and the HTTP server.
type ServeCmd struct {
	Addr  string `help:"HTTP listen address (overrides http.addr)."`
	NoBot bool   `name:"no-bot" help:"Serve HTTP only, without the Telegram bot."`
}

func newTelegramBot(cfg *Config, a *app) (*bot.Bot, error) {
	if cfg.Telegram.Token == "" {
		return nil, errors.New("telegram: token is not configured")
	}
	if cfg.Telegram.AdminUsername == "" {
		return nil, errors.New("telegram: admin_username is not configured")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	slog.Info("telegram: authorized", "bot", api.Self.UserName)

	var asker bot.Asker
	if a.asker != nil {
		asker = a.asker
	}
	return bot.New(api, a.store, a.pipeline, asker, bot.Config{
		AdminUsername: cfg.Telegram.AdminUsername,
		PollTimeout:   cfg.Telegram.PollTimeout,
	}), nil
}

func (c *ServeCmd) Run(g *Globals) error {
	logs := setupServeLogger(g.Debug)

	cfg, err := g.config()
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()

	var tg *bot.Bot
	if !c.NoBot {
		if tg, err = newTelegramBot(cfg, a); err != nil {
			return err
		}
	}

	a.ensureModels(ctx)
	if n := a.store.RecoverStaleTasks(ctx); n > 0 {
		slog.Info("recovered stale tasks", "count", n)
	}
	if n, err := a.store.Backfill(ctx); err != nil {
		slog.Warn("embedding backfill failed", "error", err)
	} else if n > 0 {
		slog.Info("queued missing embeddings", "count", n)
	}
	a.store.StartWorkers()

	addr := cfg.HTTP.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	srv := newHTTPServer(&tools{store: a.store, pred: a.pipeline}, logs)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error { return srv.serve(egCtx, addr) })
	if tg != nil {
		eg.Go(func() error { return tg.Run(egCtx) })
	}
	return eg.Wait()
}

// AddCmd captures a thought. Values not given on the command line are
// predicted.
type AddCmd struct {
	Text     []string `arg:"" help:"The thought."`
	Category string   `short:"c" help:"Category path, e.g. 'Health > Running'."`
	Urgency  string   `short:"u" help:"low, medium or high."`
	ETA      float64  `name:"eta" help:"Estimate in hours."`
}

func (c *AddCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := signalContext()
	defer stop()

	t := store.Thought{
		Text:    strings.Join(c.Text, " "),
		Label:   c.Category,
		Urgency: c.Urgency,
		ETA:     c.ETA,
	}
	if t.Label == "" || t.Urgency == "" || t.ETA == 0 {
		pred := a.pipeline.Predict(ctx, t.Text)
		if t.Label == "" {
			t.Label = pred.Category
		}
		if t.Urgency == "" {
			t.Urgency = pred.Urgency
		}
		if t.ETA == 0 {
			t.ETA = pred.ETA
		}
	}

	id, err := a.store.AddThought(ctx, t)
	if err != nil {
		return err
	}
	if _, err := a.store.ProcessPending(ctx); err != nil {
		slog.Warn("embedding deferred", "error", err)
	}
	fmt.Printf("Added #%d in %q (urgency %s, ETA %s).\n", id, t.Label, t.Urgency, bot.FormatETA(t.ETA))
	return nil
}

// ListCmd prints recent thoughts.
type ListCmd struct {
	Limit  int    `short:"n" default:"20" help:"Number of thoughts."`
	Status string `short:"s" help:"Only thoughts with this status."`
	JSON   bool   `name:"json" help:"Print JSON."`
}

func (c *ListCmd) Run(g *Globals) error {
	if c.Status != "" && !store.ValidStatus(c.Status) {
		return fmt.Errorf("%w: %q", store.ErrInvalidStatus, c.Status)
	}
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := signalContext()
	defer stop()

	thoughts, err := a.store.LastNWithStatus(ctx, c.Limit, c.Status)
	if err != nil {
		return err
	}
	if thoughts == nil {
		thoughts = []store.Thought{}
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(thoughts)
	}
	writeThoughts(os.Stdout, thoughts, isTerminal(os.Stdout))
	return nil
}

// StatusCmd changes the status of a thought.
type StatusCmd struct {
	ID     int64  `arg:"" help:"Thought id."`
	Status string `arg:"" enum:"open,in_progress,done,irrelevant" help:"New status (open, in_progress, done, irrelevant)."`
}

func (c *StatusCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := signalContext()
	defer stop()

	t, err := a.store.UpdateStatus(ctx, c.ID, c.Status)
	if err != nil {
		return err
	}
	fmt.Printf("#%d is now %s.\n", t.ID, t.Status)
	return nil
}

// TreeCmd writes the category tree.
type TreeCmd struct {
	Output   string `short:"o" type:"path" help:"Output file (default stdout)."`
	Fragment bool   `help:"Write only the nested list, without the document shell."`
}

func (c *TreeCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := signalContext()
	defer stop()

	tree, err := report.CategoryTree(ctx, a.store)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if c.Fragment {
		_, err = io.WriteString(w, tree.Fragment())
		return err
	}
	return tree.WriteHTML(w)
}

// StatsCmd prints the dashboard as Markdown, styled on a terminal.
type StatsCmd struct {
	Days int    `help:"Only thoughts created in the last N days."`
	HTML string `name:"html" type:"path" help:"Also write the HTML dashboard to this file."`
}

func (c *StatsCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := signalContext()
	defer stop()

	now := time.Now()
	var since time.Time
	if c.Days > 0 {
		since = now.AddDate(0, 0, -c.Days)
	}
	st, err := a.store.Stats(ctx, since)
	if err != nil {
		return err
	}
	dash := report.NewDashboard(st, now)

	if c.HTML != "" {
		f, err := os.Create(c.HTML)
		if err != nil {
			return err
		}
		if err := dash.WriteHTML(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		slog.Info("dashboard written", "path", c.HTML)
	}
	return writeMarkdown(os.Stdout, dash.Markdown())
}

// ImportCmd groups the CSV importers.
type ImportCmd struct {
	Categories ImportCategoriesCmd `cmd:"" help:"Import categories (show_category, semantic_category)."`
	Thoughts   ImportThoughtsCmd   `cmd:"" help:"Import thoughts (thought, class, urgency, status, eta)."`
}

// ImportCategoriesCmd imports a categories CSV.
type ImportCategoriesCmd struct {
	File string `arg:"" type:"existingfile" help:"CSV file."`
}

func (c *ImportCategoriesCmd) Run(g *Globals) error {
	return runImport(g, c.File, importer.Categories)
}

// ImportThoughtsCmd imports a thoughts CSV.
type ImportThoughtsCmd struct {
	File string `arg:"" type:"existingfile" help:"CSV file."`
}

func (c *ImportThoughtsCmd) Run(g *Globals) error {
	return runImport(g, c.File, importer.Thoughts)
}

func runImport(g *Globals, path string, fn func(ctx context.Context, sink importer.Sink, r io.Reader) (importer.Result, error)) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := signalContext()
	defer stop()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := fn(ctx, a.store, f)
	fmt.Printf("Imported %d, skipped %d.\n", res.Added, res.Skipped)
	if err != nil {
		return err
	}
	if res.Added > 0 {
		fmt.Println("Embeddings are computed by serve, or now with: thoughtpool reindex")
	}
	return nil
}

// AskCmd answers a question from recent open thoughts.
type AskCmd struct {
	Question []string `arg:"" help:"The question."`
}

func (c *AskCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	if a.asker == nil {
		return fmt.Errorf("ask needs the %q classifier backend", backendRAG)
	}
	ctx, stop := signalContext()
	defer stop()

	answer, err := a.asker.Ask(ctx, strings.Join(c.Question, " "))
	if err != nil {
		return err
	}
	return writeMarkdown(os.Stdout, answer+"\n")
}

// BrowseCmd runs the terminal browser.
type BrowseCmd struct {
	Limit int `short:"n" default:"50" help:"Number of recent thoughts to show."`
}

func (c *BrowseCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := signalContext()
	defer stop()

	a.store.StartWorkers()
	_, err = tea.NewProgram(newBrowseModel(ctx, a.store, a.pipeline, c.Limit), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// LogsCmd follows the log buffer of a running serve.
type LogsCmd struct {
	URL      string        `help:"Base URL of the serve HTTP server (default http://<http.addr>)."`
	Interval time.Duration `default:"1s" help:"Refresh interval."`
}

func (c *LogsCmd) Run(g *Globals) error {
	url := c.URL
	if url == "" {
		cfg, err := g.config()
		if err != nil {
			return err
		}
		url = "http://" + cfg.HTTP.Addr
	}
	ctx, stop := signalContext()
	defer stop()

	_, err := tea.NewProgram(newLogsModel(ctx, url, c.Interval), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// MCPCmd serves the MCP tools over stdio.
type MCPCmd struct{}

func (c *MCPCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := signalContext()
	defer stop()

	a.store.StartWorkers()
	return runMCPStdio(ctx, &tools{store: a.store, pred: a.pipeline})
}

// PushCmd sends a random open thought to the admin chat.
type PushCmd struct {
	ChatID int64 `name:"chat-id" help:"Chat to send to (default telegram.admin_chat_id)."`
}

func (c *PushCmd) Run(g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	chatID := c.ChatID
	if chatID == 0 {
		chatID = cfg.Telegram.AdminChatID
	}
	if chatID == 0 {
		return errors.New("push: no chat id; set telegram.admin_chat_id or --chat-id")
	}

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	tg, err := newTelegramBot(cfg, a)
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()
	return tg.PushRandom(ctx, chatID)
}

// ReindexCmd embeds everything that lacks a current embedding.
type ReindexCmd struct{}

func (c *ReindexCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	ctx, stop := signalContext()
	defer stop()

	a.ensureModels(ctx)
	queued, err := a.store.Backfill(ctx)
	if err != nil {
		return err
	}
	done, err := a.store.ProcessPending(ctx)
	fmt.Printf("Queued %d, embedded %d.\n", queued, done)
	return err
}
