package classify

import (
	"context"
	"fmt"
	"regexp"

	"github.com/lthms/thoughtpool/internal/llm"
)

// UnknownCategory is returned by Completion when the reply carries no label.
const UnknownCategory = "unknown"

var completionLabelRe = regexp.MustCompile(`Category: ([a-z]+)_`)

// Completion predicts categories with a fine-tuned completion model trained
// on "Note: <text> " prompts answered with "Category: <label>_...".
type Completion struct {
	Gen llm.Generator
}

// PredictCategory implements CategoryPredictor. It offers no choices.
func (c *Completion) PredictCategory(ctx context.Context, note string) (CategoryResult, error) {
	reply, err := c.Gen.Generate(ctx, llm.Request{
		Prompt:      "Note: " + note + " ",
		MaxTokens:   10,
		Temperature: 0.9,
		TopP:        1,
		Stop:        []string{"\n"},
	})
	if err != nil {
		return CategoryResult{}, fmt.Errorf("completion: %w", err)
	}
	return CategoryResult{Category: parseCompletionLabel(reply)}, nil
}

func parseCompletionLabel(reply string) string {
	m := completionLabelRe.FindStringSubmatch(reply)
	if m == nil {
		return UnknownCategory
	}
	return m[1]
}
