package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lthms/thoughtpool/internal/bot"
	"github.com/lthms/thoughtpool/internal/store"
)

// browseStore is what the browser reads and writes.
type browseStore interface {
	LastN(ctx context.Context, n int) ([]store.Thought, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*store.Thought, error)
	AddThought(ctx context.Context, t store.Thought) (int64, error)
}

type browseKeys struct {
	Up, Down, Open, Progress, Done, Irrelevant, Add, Refresh, Quit key.Binding
}

func (k browseKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Progress, k.Done, k.Irrelevant, k.Open, k.Add, k.Quit}
}

func (k browseKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp(), {k.Refresh}}
}

var defaultBrowseKeys = browseKeys{
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "reopen")),
	Progress:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "in progress")),
	Done:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "done")),
	Irrelevant: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "not relevant")),
	Add:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e"))
)

type thoughtsLoadedMsg struct {
	thoughts []store.Thought
	err      error
}

type thoughtChangedMsg struct {
	note string
	err  error
}

type browseModel struct {
	ctx   context.Context
	store browseStore
	pred  bot.Predictor
	limit int

	thoughts []store.Thought
	cursor   int
	adding   bool
	input    textinput.Model
	keys     browseKeys
	help     help.Model
	note     string
	err      error
	height   int
}

func newBrowseModel(ctx context.Context, st browseStore, pred bot.Predictor, limit int) browseModel {
	in := textinput.New()
	in.Placeholder = "new thought"
	in.CharLimit = 1000
	in.Prompt = "+ "
	return browseModel{
		ctx:    ctx,
		store:  st,
		pred:   pred,
		limit:  limit,
		input:  in,
		keys:   defaultBrowseKeys,
		help:   help.New(),
		height: 24,
	}
}

func (m browseModel) load() tea.Cmd {
	return func() tea.Msg {
		ts, err := m.store.LastN(m.ctx, m.limit)
		return thoughtsLoadedMsg{thoughts: ts, err: err}
	}
}

func (m browseModel) setStatus(id int64, status string) tea.Cmd {
	return func() tea.Msg {
		t, err := m.store.UpdateStatus(m.ctx, id, status)
		if err != nil {
			return thoughtChangedMsg{err: err}
		}
		return thoughtChangedMsg{note: fmt.Sprintf("#%d is now %s", t.ID, t.Status)}
	}
}

func (m browseModel) add(text string) tea.Cmd {
	return func() tea.Msg {
		t := store.Thought{Text: text}
		if m.pred != nil {
			pred := m.pred.Predict(m.ctx, text)
			t.Label, t.Urgency, t.ETA = pred.Category, pred.Urgency, pred.ETA
		}
		id, err := m.store.AddThought(m.ctx, t)
		if err != nil {
			return thoughtChangedMsg{err: err}
		}
		return thoughtChangedMsg{note: fmt.Sprintf("added #%d in %q", id, t.Label)}
	}
}

func (m browseModel) Init() tea.Cmd {
	return m.load()
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case thoughtsLoadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.thoughts = msg.thoughts
			m.cursor = min(m.cursor, max(0, len(m.thoughts)-1))
		}
		return m, nil

	case thoughtChangedMsg:
		m.err = msg.err
		m.note = msg.note
		if msg.err != nil {
			return m, nil
		}
		return m, m.load()

	case tea.KeyMsg:
		if m.adding {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m browseModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.adding = false
		m.input.Blur()
		m.input.Reset()
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.adding = false
		m.input.Blur()
		m.input.Reset()
		if text == "" {
			return m, nil
		}
		return m, m.add(text)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit
	case key.Matches(msg, k.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, k.Down):
		if m.cursor < len(m.thoughts)-1 {
			m.cursor++
		}
	case key.Matches(msg, k.Refresh):
		return m, m.load()
	case key.Matches(msg, k.Add):
		m.adding = true
		return m, m.input.Focus()
	default:
		if status, ok := m.statusKey(msg); ok && len(m.thoughts) > 0 {
			return m, m.setStatus(m.thoughts[m.cursor].ID, status)
		}
	}
	return m, nil
}

func (m browseModel) statusKey(msg tea.KeyMsg) (string, bool) {
	switch {
	case key.Matches(msg, m.keys.Open):
		return store.StatusOpen, true
	case key.Matches(msg, m.keys.Progress):
		return store.StatusInProgress, true
	case key.Matches(msg, m.keys.Done):
		return store.StatusDone, true
	case key.Matches(msg, m.keys.Irrelevant):
		return store.StatusIrrelevant, true
	}
	return "", false
}

// visible returns the window of thoughts that fits the screen.
func (m browseModel) visible() (int, int) {
	rows := max(1, m.height-6)
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	return start, min(len(m.thoughts), start+rows)
}

func (m browseModel) View() string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("thoughtpool") + dimStyle.Render(fmt.Sprintf("  %d most recent", m.limit)) + "\n\n")

	if len(m.thoughts) == 0 {
		sb.WriteString(dimStyle.Render("No thoughts yet. Press a to add one.") + "\n")
	}
	start, end := m.visible()
	for i := start; i < end; i++ {
		t := m.thoughts[i]
		line := fmt.Sprintf("%-11s %-18s %s", t.Status, clip(t.Label, 18), t.Text)
		if i == m.cursor {
			sb.WriteString(cursorStyle.Render("> "+line) + "\n")
		} else {
			sb.WriteString("  " + styleStatus(t.Status) + strings.Repeat(" ", max(0, 12-len(t.Status))) +
				fmt.Sprintf("%-18s %s", clip(t.Label, 18), t.Text) + "\n")
		}
	}

	sb.WriteString("\n")
	switch {
	case m.adding:
		sb.WriteString(m.input.View() + "\n")
	case m.err != nil:
		sb.WriteString(errStyle.Render(m.err.Error()) + "\n")
	case m.note != "":
		sb.WriteString(dimStyle.Render(m.note) + "\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}
