package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	logTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	logDebugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7"))
	logInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	logWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af"))
	logErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
	logKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
)

var (
	// ringLineRe matches "15:04:05 LEVEL rest" lines written by ringHandler.
	ringLineRe = regexp.MustCompile(`^(\d\d:\d\d:\d\d) (DEBUG|INFO|WARN|ERROR) (.*)$`)
	logKeyRe   = regexp.MustCompile(`(^|\s)([a-zA-Z_][a-zA-Z0-9_.]*=)`)
)

// highlightLogLine colors the time, level and attribute keys of a ring
// buffer line. Other lines are returned unchanged.
func highlightLogLine(line string) string {
	m := ringLineRe.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	var level string
	switch m[2] {
	case "DEBUG":
		level = logDebugStyle.Render(m[2])
	case "INFO":
		level = logInfoStyle.Render(m[2])
	case "WARN":
		level = logWarnStyle.Render(m[2])
	default:
		level = logErrorStyle.Render(m[2])
	}
	rest := logKeyRe.ReplaceAllStringFunc(m[3], func(s string) string {
		trimmed := strings.TrimLeft(s, " \t")
		return s[:len(s)-len(trimmed)] + logKeyStyle.Render(trimmed)
	})
	return logTimeStyle.Render(m[1]) + " " + level + " " + rest
}

type logsPayload struct {
	Lines []string `json:"lines"`
	Count int      `json:"count"`
}

// fetchLogs reads the log buffer of a running serve process.
func fetchLogs(ctx context.Context, client *http.Client, baseURL string) (*logsPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/logs", nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch logs: status %d", resp.StatusCode)
	}
	var p logsPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	return &p, nil
}

type logsTickMsg time.Time

type logsFetchedMsg struct {
	payload *logsPayload
	err     error
}

// logsModel follows the log buffer of a serve process in a viewport.
type logsModel struct {
	ctx      context.Context
	client   *http.Client
	baseURL  string
	interval time.Duration

	view      viewport.Model
	count     int
	following bool
	err       error
}

func newLogsModel(ctx context.Context, baseURL string, interval time.Duration) logsModel {
	return logsModel{
		ctx:       ctx,
		client:    &http.Client{Timeout: 5 * time.Second},
		baseURL:   baseURL,
		interval:  interval,
		view:      viewport.New(80, 20),
		following: true,
	}
}

func (m logsModel) fetch() tea.Cmd {
	return func() tea.Msg {
		p, err := fetchLogs(m.ctx, m.client, m.baseURL)
		return logsFetchedMsg{payload: p, err: err}
	}
}

func (m logsModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return logsTickMsg(t) })
}

func (m logsModel) Init() tea.Cmd {
	return m.fetch()
}

func (m logsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.view.Width = msg.Width
		m.view.Height = max(1, msg.Height-2)
		return m, nil

	case logsTickMsg:
		return m, m.fetch()

	case logsFetchedMsg:
		m.err = msg.err
		if msg.err == nil && msg.payload.Count != m.count {
			m.count = msg.payload.Count
			lines := make([]string, len(msg.payload.Lines))
			for i, l := range msg.payload.Lines {
				lines[i] = highlightLogLine(l)
			}
			m.view.SetContent(strings.Join(lines, "\n"))
			if m.following {
				m.view.GotoBottom()
			}
		}
		return m, m.tick()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "f":
			m.following = !m.following
			if m.following {
				m.view.GotoBottom()
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.view, cmd = m.view.Update(msg)
		if !m.view.AtBottom() {
			m.following = false
		}
		return m, cmd
	}
	return m, nil
}

func (m logsModel) View() string {
	status := fmt.Sprintf("%s  %d lines", m.baseURL, m.count)
	if m.following {
		status += "  following"
	}
	if m.err != nil {
		status = errStyle.Render(m.err.Error())
	}
	return m.view.View() + "\n" + dimStyle.Render(status+"  (f follow, q quit)")
}
