package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lthms/thoughtpool/internal/store"
)

// Callback payloads of the inline buttons.
const (
	cbLater        = "#later"
	cbInProgress   = "#in_progress"
	cbDone         = "#done"
	cbNotRelevant  = "#not_relevant"
	cbEditCategory = "#edit_category"
	cbChoicePrefix = "#cat:"
)

// FormatETA renders an estimate in hours as "Xh Ymin", or "Ymin" under an
// hour.
func FormatETA(eta float64) string {
	hours := int(eta)
	minutes := int((eta - float64(hours)) * 60)
	if hours > 0 {
		return fmt.Sprintf("%dh %dmin", hours, minutes)
	}
	return fmt.Sprintf("%dmin", minutes)
}

func bold(s string) string {
	return "<b>" + html.EscapeString(s) + "</b>"
}

// FormatThought renders t as an HTML chat message.
func FormatThought(t *store.Thought) string {
	label := t.Label
	if label == "" {
		label = "-"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Note: \"%s\"\n", html.EscapeString(t.Text))
	fmt.Fprintf(&sb, "Category: %s\n", bold(label))
	fmt.Fprintf(&sb, "Urgency: %s\n", bold(t.Urgency))
	fmt.Fprintf(&sb, "ETA: %s\n", bold(FormatETA(t.ETA)))
	fmt.Fprintf(&sb, "Status: %s\n", bold(t.Status))
	return sb.String()
}

// Keyboard builds the inline buttons for a thought in the given status.
// Category choices, if any, go on a second row.
func Keyboard(status string, choices []string) tgbotapi.InlineKeyboardMarkup {
	progress := tgbotapi.NewInlineKeyboardButtonData("Working on it", cbInProgress)
	if status == store.StatusInProgress {
		progress = tgbotapi.NewInlineKeyboardButtonData("Done", cbDone)
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Send me later", cbLater),
			progress,
			tgbotapi.NewInlineKeyboardButtonData("Not relevant", cbNotRelevant),
			tgbotapi.NewInlineKeyboardButtonData("Edit category", cbEditCategory),
		),
	}
	if len(choices) > 0 {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(choices))
		for i, c := range choices {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(c, cbChoicePrefix+strconv.Itoa(i)))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// parseChoice extracts N from a "#cat:N" payload.
func parseChoice(data string) (int, bool) {
	rest, ok := strings.CutPrefix(data, cbChoicePrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// statusFor maps a status button to the status it sets.
func statusFor(data string) (string, bool) {
	switch data {
	case cbDone:
		return store.StatusDone, true
	case cbInProgress:
		return store.StatusInProgress, true
	case cbNotRelevant:
		return store.StatusIrrelevant, true
	case cbLater:
		return store.StatusOpen, true
	}
	return "", false
}

// maxMessageLen is Telegram's limit for a text message, in UTF-16 units.
const maxMessageLen = 4096

// SplitMessage cuts text into pieces of at most limit UTF-16 units,
// preferring to break after a newline.
func SplitMessage(text string, limit int) []string {
	var parts []string
	for text != "" {
		cut, units, lastNL := len(text), 0, -1
		for i, r := range text {
			n := utf16.RuneLen(r)
			if n < 0 {
				n = 1
			}
			if units+n > limit {
				cut = i
				break
			}
			units += n
			if r == '\n' {
				lastNL = i
			}
		}
		if cut < len(text) && lastNL >= 0 {
			cut = lastNL + 1
		}
		if cut == 0 {
			_, size := utf8.DecodeRuneInString(text)
			cut = size
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	return parts
}
