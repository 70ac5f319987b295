package classify

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lthms/thoughtpool/internal/llm"
)

var (
	urgencyRe = regexp.MustCompile(`(?im)^\s*urgency:\s*\**\s*(low|medium|high)\b`)
	etaRe     = regexp.MustCompile(`(?im)^\s*eta:\s*\**\s*([0-9]+(?:\.[0-9]+)?)\s*(hours?|hrs?|h|minutes?|mins?|m)?\b`)
)

// FieldsLLM estimates urgency and ETA with a prompted model.
type FieldsLLM struct {
	gen    llm.Generator
	prompt *Prompt
}

// NewFieldsLLM loads the fields prompt, honouring overrides in promptsDir.
func NewFieldsLLM(gen llm.Generator, promptsDir string) (*FieldsLLM, error) {
	p, err := LoadPrompt(promptsDir, PromptFields)
	if err != nil {
		return nil, err
	}
	return &FieldsLLM{gen: gen, prompt: p}, nil
}

// EstimateFields implements FieldsEstimator. Missing or malformed values in
// the reply fall back to DefaultFields individually.
func (f *FieldsLLM) EstimateFields(ctx context.Context, note string) (Fields, error) {
	req, err := f.prompt.Request(struct{ Note string }{note})
	if err != nil {
		return DefaultFields, err
	}
	reply, err := f.gen.Generate(ctx, req)
	if err != nil {
		return DefaultFields, fmt.Errorf("fields: %w", err)
	}
	return parseFields(reply), nil
}

func parseFields(reply string) Fields {
	out := DefaultFields

	if m := urgencyRe.FindStringSubmatch(reply); m != nil {
		out.Urgency = strings.ToLower(m[1])
	}
	if m := etaRe.FindStringSubmatch(reply); m != nil {
		v, err := strconv.ParseFloat(m[1], 64)
		if err == nil && v > 0 {
			if strings.HasPrefix(strings.ToLower(m[2]), "m") {
				v /= 60
			}
			out.ETA = v
		}
	}
	return out
}
