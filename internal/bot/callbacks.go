package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lthms/thoughtpool/internal/store"
)

func (b *Bot) answerCallback(q *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, text)); err != nil {
		slog.Warn("bot: callback answer failed", "error", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	if !b.authorized(q.From) {
		slog.Warn("bot: unauthorized callback", "user", userName(q.From))
		b.answerCallback(q, b.unauthorizedText())
		return
	}
	if q.Message == nil || q.Message.Chat == nil {
		b.answerCallback(q, "")
		return
	}
	chatID := q.Message.Chat.ID
	messageID := q.Message.MessageID
	slog.Debug("bot: callback", "chat", chatID, "message", messageID, "data", q.Data)

	var err error
	switch {
	case q.Data == cbEditCategory:
		b.answerCallback(q, "")
		b.sessions.get(chatID).startEditing(messageID)
		err = b.sendText(chatID, "New category:")
	default:
		if status, ok := statusFor(q.Data); ok {
			err = b.setStatus(ctx, q, status)
		} else if n, ok := parseChoice(q.Data); ok {
			err = b.choose(ctx, q, n)
		} else {
			b.answerCallback(q, "")
			slog.Warn("bot: unknown callback", "data", q.Data)
		}
	}
	if err != nil {
		b.fail(chatID, "callback "+q.Data, err)
	}
}

func (b *Bot) linkedThought(ctx context.Context, q *tgbotapi.CallbackQuery) (*store.Thought, error) {
	t, err := b.store.ThoughtByMessage(ctx, q.Message.Chat.ID, int64(q.Message.MessageID))
	if errors.Is(err, store.ErrNotFound) {
		b.answerCallback(q, "That thought is no longer available.")
		return nil, nil
	}
	if err != nil {
		b.answerCallback(q, "")
		return nil, err
	}
	return t, nil
}

func (b *Bot) setStatus(ctx context.Context, q *tgbotapi.CallbackQuery, status string) error {
	t, err := b.linkedThought(ctx, q)
	if t == nil {
		return err
	}
	t, err = b.store.UpdateStatus(ctx, t.ID, status)
	if err != nil {
		b.answerCallback(q, "")
		return err
	}

	chatID := q.Message.Chat.ID
	if status == store.StatusOpen {
		b.answerCallback(q, "OK, I will send it later.")
	} else {
		b.answerCallback(q, "")
		if err := b.sendText(chatID, fmt.Sprintf("Status updated to %s.", t.Status)); err != nil {
			return err
		}
	}
	choices := b.sessions.get(chatID).choicesFor(q.Message.MessageID)
	return b.editThought(chatID, q.Message.MessageID, t, choices)
}

func (b *Bot) choose(ctx context.Context, q *tgbotapi.CallbackQuery, n int) error {
	chatID := q.Message.Chat.ID
	sess := b.sessions.get(chatID)
	choices := sess.choicesFor(q.Message.MessageID)
	if n >= len(choices) {
		b.answerCallback(q, "This choice has expired.")
		return nil
	}

	t, err := b.linkedThought(ctx, q)
	if t == nil {
		return err
	}
	t, err = b.store.UpdateLabel(ctx, t.ID, choices[n])
	if err != nil {
		b.answerCallback(q, "")
		return err
	}
	b.answerCallback(q, "Category set to "+t.Label)
	sess.dropChoices(q.Message.MessageID)
	return b.editThought(chatID, q.Message.MessageID, t, nil)
}
