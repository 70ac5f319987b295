package main

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lthms/thoughtpool/internal/cattree"
	"github.com/lthms/thoughtpool/internal/classify"
	"github.com/lthms/thoughtpool/internal/store"
)

type stubPredictor struct{}

func (stubPredictor) Predict(context.Context, string) classify.Prediction {
	return classify.Prediction{
		Category: "work",
		Fields:   classify.Fields{Urgency: store.UrgencyHigh, ETA: 1.5},
	}
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("result = %+v", res)
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return tc.Text
}

func TestAddThoughtTool(t *testing.T) {
	ctx := context.Background()
	tl := &tools{store: openTestStore(t), pred: stubPredictor{}}

	res, _, err := tl.addThought(ctx, nil, addThoughtArgs{Text: "  draft the memo  "})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := resultText(t, res), `Added thought 1 in "work" (urgency high, ETA 1h 30min).`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// An explicit category wins over the prediction.
	res, _, err = tl.addThought(ctx, nil, addThoughtArgs{Text: "stretch", Category: "Health > Yoga"})
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); !strings.Contains(got, `"Health > Yoga"`) {
		t.Errorf("got %q", got)
	}

	if _, _, err := tl.addThought(ctx, nil, addThoughtArgs{Text: "   "}); !errors.Is(err, store.ErrEmptyText) {
		t.Errorf("blank text err = %v", err)
	}
}

func TestAddThoughtToolWithoutPredictor(t *testing.T) {
	tl := &tools{store: openTestStore(t)}
	res, _, err := tl.addThought(context.Background(), nil, addThoughtArgs{Text: "plain"})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := resultText(t, res), `Added thought 1 in "" (urgency medium, ETA 30min).`; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRandomThoughtTool(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	tl := &tools{store: st}

	res, _, err := tl.randomThought(ctx, nil, randomThoughtArgs{})
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != "The pool has no open thoughts." {
		t.Errorf("empty pool: %q", got)
	}

	if _, err := st.AddThought(ctx, store.Thought{Text: "only one", Label: "misc"}); err != nil {
		t.Fatal(err)
	}
	res, _, err = tl.randomThought(ctx, nil, randomThoughtArgs{})
	if err != nil {
		t.Fatal(err)
	}
	var th store.Thought
	if err := json.Unmarshal([]byte(resultText(t, res)), &th); err != nil {
		t.Fatal(err)
	}
	if th.Text != "only one" || th.Label != "misc" {
		t.Errorf("thought = %+v", th)
	}
}

func TestSearchThoughtsTool(t *testing.T) {
	tl := &tools{store: openTestStore(t)}
	ctx := context.Background()

	if _, _, err := tl.searchThoughts(ctx, nil, searchThoughtsArgs{Query: " "}); err == nil {
		t.Error("blank query accepted")
	}
	// The test store has no embedder.
	if _, _, err := tl.searchThoughts(ctx, nil, searchThoughtsArgs{Query: "memo"}); !errors.Is(err, store.ErrNoEmbedder) {
		t.Errorf("err = %v, want ErrNoEmbedder", err)
	}
}

func TestCategoryTreeTool(t *testing.T) {
	ctx := context.Background()
	st := openTestStore(t)
	seedThoughts(t, st)
	tl := &tools{store: st}

	res, _, err := tl.categoryTree(ctx, nil, categoryTreeArgs{})
	if err != nil {
		t.Fatal(err)
	}
	// Labels of closed thoughts still shape the tree.
	want := "Work\n  Reports\n    - write the quarterly report\nhome\nNote\n  - buy <milk>"
	if got := resultText(t, res); got != want {
		t.Errorf("outline:\n%s\nwant:\n%s", got, want)
	}

	res, _, err = tl.categoryTree(ctx, nil, categoryTreeArgs{Format: "html"})
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); !strings.HasPrefix(got, "<!DOCTYPE html>") {
		t.Errorf("html output starts with %q", got[:min(len(got), 40)])
	}

	if _, _, err := tl.categoryTree(ctx, nil, categoryTreeArgs{Format: "yaml"}); err == nil {
		t.Error("unknown format accepted")
	}
}

func TestOutlineEmpty(t *testing.T) {
	if got := outline(cattree.New()); got != "(no categories)" {
		t.Errorf("got %q", got)
	}
}
