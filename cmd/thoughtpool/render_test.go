package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lthms/thoughtpool/internal/store"
)

func TestWriteThoughtsPlain(t *testing.T) {
	var buf bytes.Buffer
	writeThoughts(&buf, []store.Thought{
		{ID: 7, Status: store.StatusInProgress, Urgency: "high", ETA: 2.25, Label: "a really long category name here", Text: "ship it"},
	}, false)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.HasPrefix(lines[0], "   ID  STATUS") {
		t.Errorf("header = %q", lines[0])
	}
	for _, want := range []string{"    7", "in_progress", "high", "2h 15min", "a really long categ…", "ship it"} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("row %q missing %q", lines[1], want)
		}
	}
}

func TestClip(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"much too long", 5, "much…"},
		{"héllo wörld", 6, "héllo…"},
	}
	for _, tt := range tests {
		if got := clip(tt.in, tt.n); got != tt.want {
			t.Errorf("clip(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestWriteMarkdownPlainForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if err := writeMarkdown(&buf, "# Title\n"); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "# Title\n" {
		t.Errorf("got %q", buf.String())
	}
}
