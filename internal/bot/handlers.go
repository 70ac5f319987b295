package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lthms/thoughtpool/internal/report"
	"github.com/lthms/thoughtpool/internal/store"
)

const (
	defaultLastN = 5
	maxLastN     = 50
)

const helpText = DefaultPrompt + "\n\n" +
	"/new - add a thought\n" +
	"/random - a random open thought\n" +
	"/last [n] - the n most recent thoughts (default 5)\n" +
	"/stats - dashboard of your pull\n" +
	"/tree - category tree\n" +
	"/ask <question> - ask about your recent open thoughts"

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.Chat == nil {
		return
	}
	chatID := m.Chat.ID
	if !b.authorized(m.From) {
		slog.Warn("bot: unauthorized message", "chat", chatID, "user", userName(m.From))
		if err := b.sendText(chatID, b.unauthorizedText()); err != nil {
			slog.Warn("bot: send failed", "chat", chatID, "error", err)
		}
		return
	}

	if m.IsCommand() {
		// A command abandons a pending category edit.
		b.sessions.get(chatID).takeEditing()
		cmd := m.Command()
		slog.Debug("bot: command", "chat", chatID, "command", cmd)
		if err := b.handleCommand(ctx, chatID, cmd, strings.TrimSpace(m.CommandArguments())); err != nil {
			b.fail(chatID, "/"+cmd, err)
		}
		return
	}

	text := strings.TrimSpace(m.Text)
	if text == "" {
		if err := b.sendText(chatID, DefaultPrompt); err != nil {
			slog.Warn("bot: send failed", "chat", chatID, "error", err)
		}
		return
	}

	if editing := b.sessions.get(chatID).takeEditing(); editing != 0 {
		if err := b.applyCategory(ctx, chatID, editing, text); err != nil {
			b.fail(chatID, "category edit", err)
		}
		return
	}
	if err := b.capture(ctx, chatID, text); err != nil {
		b.fail(chatID, "capture", err)
	}
}

func userName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	return u.UserName
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, cmd, args string) error {
	switch cmd {
	case "start":
		return b.sendText(chatID, DefaultPrompt)
	case "help":
		return b.sendText(chatID, helpText)
	case "new":
		return b.sendText(chatID, "Please send me a new thought to add to your pull.")
	case "random":
		return b.random(ctx, chatID)
	case "last":
		return b.last(ctx, chatID, args)
	case "stats", "plot":
		return b.stats(ctx, chatID)
	case "tree":
		return b.tree(ctx, chatID)
	case "ask":
		return b.ask(ctx, chatID, args)
	default:
		return b.sendText(chatID, DefaultPrompt)
	}
}

// capture classifies and stores a new thought, then shows it.
func (b *Bot) capture(ctx context.Context, chatID int64, text string) error {
	pred := b.pred.Predict(ctx, text)
	id, err := b.store.AddThought(ctx, store.Thought{
		Text:    text,
		Label:   pred.Category,
		Urgency: pred.Urgency,
		Status:  store.StatusOpen,
		ETA:     pred.ETA,
	})
	if err != nil {
		return err
	}
	t, err := b.store.GetThought(ctx, id)
	if err != nil {
		return err
	}
	_, err = b.sendThought(ctx, chatID, "", t, pred.Choices)
	return err
}

func (b *Bot) random(ctx context.Context, chatID int64) error {
	t, err := b.store.RandomOpen(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return b.sendText(chatID, "Your pull has no open thoughts. Use /new to add one.")
	}
	if err != nil {
		return err
	}
	_, err = b.sendThought(ctx, chatID, "Random thought from your pull: \n", t, nil)
	return err
}

func (b *Bot) last(ctx context.Context, chatID int64, args string) error {
	n := defaultLastN
	if args != "" {
		v, err := strconv.Atoi(args)
		if err != nil || v <= 0 {
			return b.sendText(chatID, "Usage: /last [n]")
		}
		n = min(v, maxLastN)
	}
	thoughts, err := b.store.LastN(ctx, n)
	if err != nil {
		return err
	}
	if len(thoughts) == 0 {
		return b.sendText(chatID, "No thoughts yet. Use /new to add one.")
	}
	for i := range thoughts {
		if _, err := b.sendThought(ctx, chatID, "", &thoughts[i], nil); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) stats(ctx context.Context, chatID int64) error {
	st, err := b.store.Stats(ctx, time.Time{})
	if err != nil {
		return err
	}
	dash := report.NewDashboard(st, b.cfg.Now())
	page, err := dash.HTML()
	if err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	if err := b.sendText(chatID, statsSummary(dash)); err != nil {
		return err
	}
	return b.sendDocument(chatID, "dashboard.html", []byte(page), "Dashboard")
}

func statsSummary(d *report.Dashboard) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d thoughts in your pull.\n", d.Stats.Total)
	for _, s := range d.Statuses() {
		fmt.Fprintf(&sb, "%s: %d\n", s.Status, s.Count)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (b *Bot) tree(ctx context.Context, chatID int64) error {
	tree, err := report.CategoryTree(ctx, b.store)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := tree.WriteHTML(&buf); err != nil {
		return fmt.Errorf("render tree: %w", err)
	}
	caption := fmt.Sprintf("%d categories", tree.Len())
	return b.sendDocument(chatID, "categories.html", buf.Bytes(), caption)
}

func (b *Bot) ask(ctx context.Context, chatID int64, question string) error {
	if question == "" {
		return b.sendText(chatID, "Usage: /ask <question>")
	}
	if b.asker == nil {
		return b.sendText(chatID, "Questions are not available with the current classifier.")
	}
	answer, err := b.asker.Ask(ctx, question)
	if err != nil {
		return err
	}
	if strings.TrimSpace(answer) == "" {
		return b.sendText(chatID, "I have no answer to that.")
	}
	for _, part := range SplitMessage(answer, maxMessageLen) {
		if strings.TrimSpace(part) == "" {
			continue
		}
		if err := b.sendText(chatID, part); err != nil {
			return err
		}
	}
	return nil
}

// applyCategory sets text as the category of the thought shown in
// messageID and refreshes that message.
func (b *Bot) applyCategory(ctx context.Context, chatID int64, messageID int, label string) error {
	t, err := b.store.ThoughtByMessage(ctx, chatID, int64(messageID))
	if errors.Is(err, store.ErrNotFound) {
		return b.sendText(chatID, "That thought is no longer available.")
	}
	if err != nil {
		return err
	}
	t, err = b.store.UpdateLabel(ctx, t.ID, label)
	if err != nil {
		return err
	}
	sess := b.sessions.get(chatID)
	sess.dropChoices(messageID)
	if err := b.sendText(chatID, fmt.Sprintf("Category updated to '%s'.", label)); err != nil {
		return err
	}
	return b.editThought(chatID, messageID, t, nil)
}
