// Package bot serves the note pool over a Telegram chat.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lthms/thoughtpool/internal/classify"
	"github.com/lthms/thoughtpool/internal/store"
)

// DefaultPrompt is sent for /start and anything the bot does not understand.
const DefaultPrompt = "Please use /new command to add new thought to your pull " +
	"or /random to get a random thought from your pull."

const apologyText = "Sorry, something went wrong. Please try again."

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Store is the note storage the bot reads and writes.
type Store interface {
	AddThought(ctx context.Context, t store.Thought) (int64, error)
	GetThought(ctx context.Context, id int64) (*store.Thought, error)
	LinkMessage(ctx context.Context, chatID, messageID, thoughtID int64) error
	ThoughtByMessage(ctx context.Context, chatID, messageID int64) (*store.Thought, error)
	RandomOpen(ctx context.Context) (*store.Thought, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*store.Thought, error)
	UpdateLabel(ctx context.Context, id int64, label string) (*store.Thought, error)
	LastN(ctx context.Context, n int) ([]store.Thought, error)
	Stats(ctx context.Context, since time.Time) (*store.Stats, error)
	CategoryPaths(ctx context.Context) ([]string, error)
	Active(ctx context.Context) ([]store.Thought, error)
}

// Predictor classifies incoming notes.
type Predictor interface {
	Predict(ctx context.Context, note string) classify.Prediction
}

// Asker answers free-form questions about recent notes.
type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Config configures a Bot.
type Config struct {
	// AdminUsername is the only Telegram user served.
	AdminUsername string
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int
	Now         func() time.Time
}

// Bot dispatches Telegram updates. Updates are handled one at a time.
type Bot struct {
	api      API
	store    Store
	pred     Predictor
	asker    Asker
	cfg      Config
	sessions *sessions
}

// New creates a bot. asker may be nil, in which case /ask is unavailable.
func New(api API, st Store, pred Predictor, asker Asker, cfg Config) *Bot {
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Bot{
		api:      api,
		store:    st,
		pred:     pred,
		asker:    asker,
		cfg:      cfg,
		sessions: newSessions(),
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	slog.Info("bot: polling for updates", "admin", b.cfg.AdminUsername)
	for {
		select {
		case <-ctx.Done():
			slog.Info("bot: stopping")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return errors.New("bot: updates channel closed")
			}
			b.HandleUpdate(ctx, upd)
		}
	}
}

// HandleUpdate dispatches a single update. Handler errors are logged and
// reported to the user; they never stop the bot.
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) authorized(u *tgbotapi.User) bool {
	return u != nil && b.cfg.AdminUsername != "" && u.UserName == b.cfg.AdminUsername
}

func (b *Bot) unauthorizedText() string {
	return fmt.Sprintf("You are not authorized to use this bot. Please contact @%s to get access.", b.cfg.AdminUsername)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	_, err := b.api.Send(msg)
	return err
}

// sendThought sends t with its buttons and links the message to t.
func (b *Bot) sendThought(ctx context.Context, chatID int64, prefix string, t *store.Thought, choices []string) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, prefix+FormatThought(t))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = Keyboard(t.Status, choices)

	sent, err := b.api.Send(msg)
	if err != nil {
		return sent, fmt.Errorf("send thought %d: %w", t.ID, err)
	}
	if err := b.store.LinkMessage(ctx, chatID, int64(sent.MessageID), t.ID); err != nil {
		return sent, err
	}
	if len(choices) > 0 {
		b.sessions.get(chatID).setChoices(sent.MessageID, choices)
	}
	return sent, nil
}

// editThought rewrites a previously sent thought message in place.
func (b *Bot) editThought(chatID int64, messageID int, t *store.Thought, choices []string) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, FormatThought(t), Keyboard(t.Status, choices))
	edit.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(edit)
	if err != nil {
		return fmt.Errorf("edit message %d: %w", messageID, err)
	}
	return nil
}

func (b *Bot) sendDocument(chatID int64, name string, content []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: content})
	doc.Caption = caption
	_, err := b.api.Send(doc)
	if err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	return nil
}

func (b *Bot) fail(chatID int64, what string, err error) {
	slog.Error("bot: "+what+" failed", "chat", chatID, "error", err)
	if sendErr := b.sendText(chatID, apologyText); sendErr != nil {
		slog.Warn("bot: apology not delivered", "chat", chatID, "error", sendErr)
	}
}

// PushRandom sends a random open thought to chatID and asks whether it is
// still relevant.
func (b *Bot) PushRandom(ctx context.Context, chatID int64) error {
	t, err := b.store.RandomOpen(ctx)
	if errors.Is(err, store.ErrNotFound) {
		slog.Info("bot: nothing to push")
		return nil
	}
	if err != nil {
		return err
	}
	_, err = b.sendThought(ctx, chatID, "Is this still relevant?\n", t, nil)
	return err
}
