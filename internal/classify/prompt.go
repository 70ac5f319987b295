package classify

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/lthms/thoughtpool/internal/llm"
	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.md
var promptFS embed.FS

// Prompt names.
const (
	PromptCategorize = "categorize"
	PromptQuery      = "query"
	PromptFields     = "fields"
)

// PromptFrontmatter is the YAML header of a prompt file. Zero values leave
// the backend default in place.
type PromptFrontmatter struct {
	Description   string   `yaml:"description"`
	Temperature   float64  `yaml:"temperature"`
	TopP          float64  `yaml:"top_p"`
	MaxTokens     int      `yaml:"max_tokens"`
	RepeatPenalty float64  `yaml:"repeat_penalty"`
	Stop          []string `yaml:"stop"`
}

// Prompt is a parsed prompt template with its generation parameters.
type Prompt struct {
	Name string
	PromptFrontmatter
	tmpl *template.Template
}

// ParsePrompt splits a prompt file into YAML frontmatter and a text/template
// body. The prompt name is derived from the filename.
func ParsePrompt(filename string, content []byte) (*Prompt, error) {
	name := strings.TrimSuffix(filepath.Base(filename), ".md")

	trimmed := bytes.TrimLeft(content, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte("---")) {
		return nil, fmt.Errorf("%s: missing frontmatter", filename)
	}
	rest := trimmed[3:]
	idx := bytes.Index(rest, []byte("\n---"))
	if idx < 0 {
		return nil, fmt.Errorf("%s: unclosed frontmatter", filename)
	}

	var fm PromptFrontmatter
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, fmt.Errorf("%s: bad frontmatter: %w", filename, err)
	}

	body := bytes.TrimSpace(rest[idx+4:])
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("%s: bad template: %w", filename, err)
	}

	return &Prompt{Name: name, PromptFrontmatter: fm, tmpl: tmpl}, nil
}

// LoadPrompt returns the named prompt. A file <name>.md in overrideDir takes
// precedence over the built-in one; an empty overrideDir uses built-ins only.
func LoadPrompt(overrideDir, name string) (*Prompt, error) {
	filename := name + ".md"
	if overrideDir != "" {
		content, err := os.ReadFile(filepath.Join(overrideDir, filename))
		if err == nil {
			return ParsePrompt(filename, content)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read prompt %s: %w", filename, err)
		}
	}

	content, err := promptFS.ReadFile("prompts/" + filename)
	if err != nil {
		return nil, fmt.Errorf("read built-in prompt %s: %w", filename, err)
	}
	return ParsePrompt(filename, content)
}

// Render executes the template body with data.
func (p *Prompt) Render(data any) (string, error) {
	var sb strings.Builder
	if err := p.tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", p.Name, err)
	}
	return sb.String(), nil
}

// Request renders the prompt and attaches its generation parameters.
func (p *Prompt) Request(data any) (llm.Request, error) {
	text, err := p.Render(data)
	if err != nil {
		return llm.Request{}, err
	}
	return llm.Request{
		Prompt:        text,
		Temperature:   p.Temperature,
		TopP:          p.TopP,
		MaxTokens:     p.MaxTokens,
		RepeatPenalty: p.RepeatPenalty,
		Stop:          p.Stop,
	}, nil
}
