package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestHighlightLogLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		keep  []string
	}{
		{"info", "10:00:00 INFO thought captured id=3 label=work", []string{"10:00:00", "INFO", "thought captured", "id=", "3", "label=", "work"}},
		{"debug", "10:00:01 DEBUG poll", []string{"DEBUG", "poll"}},
		{"warn", "10:00:02 WARN send failed chat=42", []string{"WARN", "chat=", "42"}},
		{"error", "10:00:03 ERROR boom", []string{"ERROR", "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := highlightLogLine(tt.input)
			for _, want := range tt.keep {
				if !strings.Contains(got, want) {
					t.Errorf("%q lost %q", got, want)
				}
			}
		})
	}

	plain := "panic: something unexpected"
	if got := highlightLogLine(plain); got != plain {
		t.Errorf("plain line changed to %q", got)
	}
}

func TestFetchLogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/logs" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"lines":["10:00:00 INFO a","10:00:01 INFO b"],"count":7}`))
	}))
	defer srv.Close()

	p, err := fetchLogs(context.Background(), srv.Client(), srv.URL+"/")
	if err != nil {
		t.Fatal(err)
	}
	if p.Count != 7 || len(p.Lines) != 2 || p.Lines[1] != "10:00:01 INFO b" {
		t.Errorf("payload = %+v", p)
	}

	if _, err := fetchLogs(context.Background(), srv.Client(), srv.URL+"/elsewhere"); err == nil {
		t.Error("404 accepted")
	}
}

func TestLogsModelFollow(t *testing.T) {
	m := newLogsModel(context.Background(), "http://example.invalid", time.Second)
	var model tea.Model = m

	model, _ = model.Update(logsFetchedMsg{payload: &logsPayload{Lines: []string{"10:00:00 INFO ready"}, Count: 1}})
	lm := model.(logsModel)
	if lm.count != 1 || !strings.Contains(lm.View(), "ready") {
		t.Errorf("count = %d, view = %q", lm.count, lm.View())
	}
	if !strings.Contains(lm.View(), "following") {
		t.Error("new model should follow")
	}

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	if model.(logsModel).following {
		t.Error("f should toggle follow off")
	}

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
