package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/lthms/thoughtpool/internal/bot"
	"github.com/lthms/thoughtpool/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Faint(true)

	statusStyles = map[string]lipgloss.Style{
		store.StatusOpen:       lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")),
		store.StatusInProgress: lipgloss.NewStyle().Foreground(lipgloss.Color("#f9e2af")),
		store.StatusDone:       lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")),
		store.StatusIrrelevant: lipgloss.NewStyle().Faint(true),
	}
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// renderMarkdown styles md for a terminal, falling back to the source.
func renderMarkdown(md string) string {
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

// writeMarkdown prints md, styled when w is a terminal.
func writeMarkdown(w io.Writer, md string) error {
	if f, ok := w.(*os.File); ok && isTerminal(f) {
		md = renderMarkdown(md) + "\n"
	}
	_, err := io.WriteString(w, md)
	return err
}

func styleStatus(status string) string {
	if st, ok := statusStyles[status]; ok {
		return st.Render(status)
	}
	return status
}

// writeThoughts prints one line per thought. Styling is applied only when
// color is set.
func writeThoughts(w io.Writer, thoughts []store.Thought, color bool) {
	header := fmt.Sprintf("%5s  %-11s  %-6s  %-8s  %-20s  %s", "ID", "STATUS", "URG", "ETA", "CATEGORY", "THOUGHT")
	if color {
		header = headerStyle.Render(header)
	}
	fmt.Fprintln(w, header)
	for _, t := range thoughts {
		status := fmt.Sprintf("%-11s", t.Status)
		if color {
			status = styleStatus(t.Status) + strings.Repeat(" ", max(0, 11-len(t.Status)))
		}
		fmt.Fprintf(w, "%5d  %s  %-6s  %-8s  %-20s  %s\n",
			t.ID, status, t.Urgency, bot.FormatETA(t.ETA), clip(t.Label, 20), t.Text)
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
