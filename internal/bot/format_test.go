package bot

import (
	"reflect"
	"testing"

	"github.com/lthms/thoughtpool/internal/store"
)

func TestFormatETA(t *testing.T) {
	tests := []struct {
		eta  float64
		want string
	}{
		{1.5, "1h 30min"},
		{0.25, "15min"},
		{0.5, "30min"},
		{2, "2h 0min"},
		{0, "0min"},
	}
	for _, tt := range tests {
		if got := FormatETA(tt.eta); got != tt.want {
			t.Errorf("FormatETA(%v) = %q, want %q", tt.eta, got, tt.want)
		}
	}
}

func TestFormatThoughtUnlabelled(t *testing.T) {
	got := FormatThought(&store.Thought{Text: "x", Urgency: "low", Status: "open", ETA: 0.5})
	want := "Note: \"x\"\nCategory: <b>-</b>\nUrgency: <b>low</b>\nETA: <b>30min</b>\nStatus: <b>open</b>\n"
	if got != want {
		t.Errorf("FormatThought = %q, want %q", got, want)
	}
}

func TestParseChoice(t *testing.T) {
	if n, ok := parseChoice("#cat:3"); !ok || n != 3 {
		t.Errorf("parseChoice(#cat:3) = %d, %v", n, ok)
	}
	for _, bad := range []string{"#cat:", "#cat:-1", "#cat:x", "#done"} {
		if _, ok := parseChoice(bad); ok {
			t.Errorf("parseChoice(%q) accepted", bad)
		}
	}
}

func TestKeyboardStatusButton(t *testing.T) {
	rows := buttonTexts(Keyboard(store.StatusInProgress, nil))
	if len(rows) != 1 || rows[0][1] != "Done" {
		t.Errorf("in_progress keyboard = %v", rows)
	}
	kb := Keyboard(store.StatusOpen, []string{"a"})
	if data := kb.InlineKeyboard[1][0].CallbackData; data == nil || *data != "#cat:0" {
		t.Errorf("choice callback = %v", data)
	}
}

func TestSessionChoicesBounded(t *testing.T) {
	s := newSessions().get(1)
	for i := 1; i <= maxTrackedChoices+5; i++ {
		s.setChoices(i, []string{"x"})
	}
	if s.choicesFor(1) != nil || s.choicesFor(maxTrackedChoices+5) == nil {
		t.Error("oldest choices not evicted")
	}
	if len(s.choices) != maxTrackedChoices {
		t.Errorf("tracking %d messages", len(s.choices))
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{"fits", "hello", 10, []string{"hello"}},
		{"at newline", "ab\ncd\nef", 6, []string{"ab\ncd\n", "ef"}},
		{"no newline", "abcdefg", 3, []string{"abc", "def", "g"}},
		{"utf16 units", "😀😀😀", 4, []string{"😀😀", "😀"}},
		{"empty", "", 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.text, tt.limit)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitMessage(%q, %d) = %q, want %q", tt.text, tt.limit, got, tt.want)
			}
		})
	}
}
