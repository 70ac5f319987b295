// Package classify predicts a category, urgency and time estimate for a
// captured note using language model backends.
package classify

import (
	"context"
	"log/slog"

	"github.com/lthms/thoughtpool/internal/store"
)

// FallbackCategory is assigned when no category can be predicted, and is
// always offered as a choice.
const FallbackCategory = "Note"

// CategoryResult is a predicted category plus alternatives for the user.
type CategoryResult struct {
	Category string
	Choices  []string
}

// CategoryPredictor predicts the category of a note.
type CategoryPredictor interface {
	PredictCategory(ctx context.Context, note string) (CategoryResult, error)
}

// Fields are the secondary attributes of a note.
type Fields struct {
	Urgency string
	ETA     float64 // hours
}

// DefaultFields are used when no estimate is available.
var DefaultFields = Fields{Urgency: store.UrgencyMedium, ETA: store.DefaultETA}

// FieldsEstimator estimates urgency and ETA for a note.
type FieldsEstimator interface {
	EstimateFields(ctx context.Context, note string) (Fields, error)
}

// Prediction is everything the pipeline derives from a note.
type Prediction struct {
	Category string
	Choices  []string
	Fields
}

// Pipeline combines a category predictor with a fields estimator. Either
// may be nil. Backend failures degrade to FallbackCategory and
// DefaultFields instead of failing the capture.
type Pipeline struct {
	Categories CategoryPredictor
	Fields     FieldsEstimator
	// Remap replaces predicted labels, e.g. relationships -> personal.
	Remap map[string]string
}

// Predict classifies note.
func (p *Pipeline) Predict(ctx context.Context, note string) Prediction {
	pred := Prediction{Category: FallbackCategory, Fields: DefaultFields}

	if p.Categories != nil {
		res, err := p.Categories.PredictCategory(ctx, note)
		if err != nil {
			slog.Warn("classify: category prediction failed", "error", err)
		} else if res.Category != "" {
			pred.Category = res.Category
			pred.Choices = res.Choices
		}
	}
	pred.Category = p.remap(pred.Category)
	pred.Choices = p.remapChoices(pred.Choices)

	if p.Fields != nil {
		f, err := p.Fields.EstimateFields(ctx, note)
		if err != nil {
			slog.Warn("classify: fields estimation failed", "error", err)
		} else {
			pred.Fields = f
		}
	}

	slog.Debug("classify: prediction", "category", pred.Category, "choices", len(pred.Choices),
		"urgency", pred.Urgency, "eta", pred.ETA)
	return pred
}

func (p *Pipeline) remap(label string) string {
	if to, ok := p.Remap[label]; ok {
		return to
	}
	return label
}

func (p *Pipeline) remapChoices(choices []string) []string {
	if len(choices) == 0 {
		return nil
	}
	mapped := make([]string, len(choices))
	for i, c := range choices {
		mapped[i] = p.remap(c)
	}
	return dedupe(mapped)
}

// dedupe drops empty and repeated strings, keeping first occurrences.
func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
