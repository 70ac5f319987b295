package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lthms/thoughtpool/internal/bot"
	"github.com/lthms/thoughtpool/internal/cattree"
	"github.com/lthms/thoughtpool/internal/report"
	"github.com/lthms/thoughtpool/internal/store"
)

const (
	mcpServerName      = "thoughtpool"
	defaultSearchLimit = 5
)

// tools implements the MCP tool handlers over the store.
type tools struct {
	store *store.Store
	pred  bot.Predictor // nil stores thoughts without classification
}

type addThoughtArgs struct {
	Text     string `json:"text" jsonschema:"The thought to capture"`
	Category string `json:"category,omitempty" jsonschema:"Category path such as 'Health > Running'; predicted when empty"`
}

type searchThoughtsArgs struct {
	Query string `json:"query" jsonschema:"Text to find similar thoughts for"`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 5)"`
}

type randomThoughtArgs struct{}

type categoryTreeArgs struct {
	Format string `json:"format,omitempty" jsonschema:"outline (default) or html"`
}

// newMCPServer creates a server with every tool registered. The SSE
// handler calls it once per connection.
func newMCPServer(t *tools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: mcpServerName, Version: "1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "add_thought",
		Description: "Capture a new thought in the pool. The category, urgency and ETA are predicted unless a category is given.",
	}, t.addThought)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_thoughts",
		Description: "Find labelled thoughts semantically similar to a query. Returns a JSON array of thoughts, each with a cosine similarity score.",
	}, t.searchThoughts)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "random_thought",
		Description: "Return a random thought that is not done or irrelevant.",
	}, t.randomThought)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "category_tree",
		Description: "Return the category tree with open thoughts attached, as an indented outline or an HTML document.",
	}, t.categoryTree)

	return server
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func (t *tools) addThought(ctx context.Context, _ *mcp.CallToolRequest, args addThoughtArgs) (*mcp.CallToolResult, any, error) {
	text := strings.TrimSpace(args.Text)
	if text == "" {
		return nil, nil, store.ErrEmptyText
	}
	th := store.Thought{Text: text, Label: strings.TrimSpace(args.Category)}
	if t.pred != nil {
		pred := t.pred.Predict(ctx, text)
		if th.Label == "" {
			th.Label = pred.Category
		}
		th.Urgency = pred.Urgency
		th.ETA = pred.ETA
	}
	slog.Debug("mcp: add_thought", "label", th.Label)

	id, err := t.store.AddThought(ctx, th)
	if err != nil {
		return nil, nil, err
	}
	saved, err := t.store.GetThought(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return textResult(fmt.Sprintf("Added thought %d in %q (urgency %s, ETA %s).",
		saved.ID, saved.Label, saved.Urgency, bot.FormatETA(saved.ETA))), nil, nil
}

func (t *tools) searchThoughts(ctx context.Context, _ *mcp.CallToolRequest, args searchThoughtsArgs) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return nil, nil, errors.New("query is required")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	matches, err := t.store.NearestThoughts(ctx, args.Query, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("search failed: %w", err)
	}
	if matches == nil {
		matches = []store.ThoughtMatch{}
	}
	out, err := json.Marshal(matches)
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(out)), nil, nil
}

func (t *tools) randomThought(ctx context.Context, _ *mcp.CallToolRequest, _ randomThoughtArgs) (*mcp.CallToolResult, any, error) {
	th, err := t.store.RandomOpen(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return textResult("The pool has no open thoughts."), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	out, err := json.Marshal(th)
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(out)), nil, nil
}

func (t *tools) categoryTree(ctx context.Context, _ *mcp.CallToolRequest, args categoryTreeArgs) (*mcp.CallToolResult, any, error) {
	tree, err := report.CategoryTree(ctx, t.store)
	if err != nil {
		return nil, nil, err
	}
	switch args.Format {
	case "", "outline":
		return textResult(outline(tree)), nil, nil
	case "html":
		return textResult(tree.HTML()), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown format %q", args.Format)
}

// outline renders the tree as indented text, todos as "- " items.
func outline(tree *cattree.Tree) string {
	if tree.Len() == 0 {
		return "(no categories)"
	}
	var sb strings.Builder
	tree.Walk(func(_ string, depth int, n *cattree.Node) bool {
		indent := strings.Repeat("  ", depth)
		sb.WriteString(indent + n.Name + "\n")
		for _, todo := range n.Todos {
			sb.WriteString(indent + "  - " + todo + "\n")
		}
		return true
	})
	return strings.TrimRight(sb.String(), "\n")
}

func runMCPStdio(ctx context.Context, t *tools) error {
	slog.Debug("starting MCP server on stdio")
	return newMCPServer(t).Run(ctx, &mcp.StdioTransport{})
}
