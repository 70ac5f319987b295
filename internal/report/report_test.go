package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lthms/thoughtpool/internal/store"
)

type stubSource struct {
	paths    []string
	thoughts []store.Thought
	err      error
}

func (s *stubSource) CategoryPaths(context.Context) ([]string, error) { return s.paths, s.err }
func (s *stubSource) Active(context.Context) ([]store.Thought, error) { return s.thoughts, nil }

func TestCategoryTree(t *testing.T) {
	src := &stubSource{
		paths: []string{"Health > Running", "Work", "Broken >  > x"},
		thoughts: []store.Thought{
			{ID: 1, Text: "buy shoes", Label: "Health > Running"},
			{ID: 2, Text: "call bob"},
			{ID: 3, Text: "   ", Label: "Work"},
		},
	}
	tree, err := CategoryTree(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}

	n, ok := tree.Lookup("Health > Running")
	if !ok || len(n.Todos) != 1 || n.Todos[0] != "buy shoes" {
		t.Fatalf("Health > Running = %+v, %v", n, ok)
	}
	note, ok := tree.Lookup(UnlabelledCategory)
	if !ok || len(note.Todos) != 1 || note.Todos[0] != "call bob" {
		t.Fatalf("unlabelled thought not under %q: %+v", UnlabelledCategory, note)
	}
	work, _ := tree.Lookup("Work")
	if len(work.Todos) != 0 {
		t.Errorf("blank todo was attached: %v", work.Todos)
	}
	if _, ok := tree.Lookup("Broken"); ok {
		t.Error("invalid path was inserted")
	}

	var roots []string
	for _, r := range tree.Roots() {
		roots = append(roots, r.Name)
	}
	if got := strings.Join(roots, ","); got != "Health,Work,Note" {
		t.Errorf("roots = %s", got)
	}
}

func TestCategoryTreeSourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := CategoryTree(context.Background(), &stubSource{err: boom})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}

func sampleStats() *store.Stats {
	return &store.Stats{
		Since: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Total: 6,
		ByStatus: map[string]int{
			store.StatusOpen: 3,
			store.StatusDone: 2,
			"archived":       1,
		},
		Labels: []store.LabelStats{
			{Label: "work", Total: 4, Done: 2, AvgDaysToDone: 1.5},
			{Label: "a|b", Total: 2},
		},
	}
}

func TestDashboardStatuses(t *testing.T) {
	d := NewDashboard(sampleStats(), time.Time{})
	var got []string
	for _, s := range d.Statuses() {
		got = append(got, s.Status)
	}
	want := "open,in_progress,done,irrelevant,archived"
	if strings.Join(got, ",") != want {
		t.Errorf("statuses = %v, want %s", got, want)
	}
}

func TestDashboardMarkdown(t *testing.T) {
	md := NewDashboard(sampleStats(), time.Time{}).Markdown()
	for _, want := range []string{
		"6 thoughts, since 2024-03-01.",
		"| open | 3 |",
		"| in_progress | 0 |",
		"| archived | 1 |",
		"| work | 4 | 2 | 1.5 | " + strings.Repeat("█", 20) + " |",
		`| a\|b | 2 | 0 | - | ` + strings.Repeat("█", 10) + " |",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestDashboardMarkdownEmpty(t *testing.T) {
	md := NewDashboard(&store.Stats{ByStatus: map[string]int{}}, time.Time{}).Markdown()
	if !strings.Contains(md, "0 thoughts, all time.") || !strings.Contains(md, "No thoughts yet.") {
		t.Errorf("unexpected empty dashboard:\n%s", md)
	}
}

func TestDashboardHTML(t *testing.T) {
	st := sampleStats()
	st.Labels = append(st.Labels, store.LabelStats{Label: "<script>", Total: 1})
	page, err := NewDashboard(st, time.Date(2024, 3, 5, 10, 30, 0, 0, time.UTC)).HTML()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<!DOCTYPE html>",
		"Generated 2024-03-05 10:30.",
		`<td>work</td><td class="num">4</td><td class="num">2</td><td class="num">1.5</td>`,
		`class="bar opened" style="width: 50.0%"`,
		`class="bar done" style="width: 50.0%"`,
		"&lt;script&gt;",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("html missing %q", want)
		}
	}
	if strings.Contains(page, "<td><script>") {
		t.Error("label was not escaped")
	}
}
