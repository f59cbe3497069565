// Package pipeline wires model annotation, custom pattern matching,
// merging, summarizing, and rendering into one analysis call.
package pipeline

import (
	"context"
	"fmt"

	"github.com/ai-mindset/ner-playground/internal/annotate"
	"github.com/ai-mindset/ner-playground/internal/entity"
	"github.com/ai-mindset/ner-playground/internal/match"
	"github.com/ai-mindset/ner-playground/internal/render"
)

// ModelLoader resolves model names to annotators.
type ModelLoader interface {
	Load(name string) (annotate.Annotator, error)
}

// Pipeline runs the full analysis sequence over one document at a time.
// It is safe for concurrent use once constructed.
type Pipeline struct {
	loader  ModelLoader
	matcher *match.Matcher
}

// New builds a pipeline with the given loader and rule table. A nil
// rule slice selects the built-in table.
func New(loader ModelLoader, rules []match.Rule) (*Pipeline, error) {
	if rules == nil {
		var err error
		rules, err = match.DefaultRules()
		if err != nil {
			return nil, fmt.Errorf("load default rules: %w", err)
		}
	}
	matcher, err := match.Compile(rules)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}
	return &Pipeline{loader: loader, matcher: matcher}, nil
}

// Result bundles everything one analysis produces.
type Result struct {
	Doc      *annotate.Document `json:"doc"`
	Entities entity.Collection  `json:"entities"`
	Summary  entity.Summary     `json:"summary"`
	HTML     string             `json:"-"`
}

// Analyze runs the model and the rule table over text and merges both
// entity sets. Model resolution failures are returned as-is so callers
// can match annotate.ErrModelUnavailable; nothing partial is returned.
func (p *Pipeline) Analyze(ctx context.Context, text, model string) (*Result, error) {
	// 1. Load model
	ann, err := p.loader.Load(model)
	if err != nil {
		return nil, err
	}

	// 2. Annotate document
	doc, err := ann.Annotate(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("annotate: %w", err)
	}

	// 3. Collect custom pattern matches
	custom := p.matcher.Match(doc)

	// 4. Merge native and custom entities
	merged := entity.Merge(doc.Ents, custom)

	// 5. Summarize by label
	summary := entity.Summarize(merged)

	// 6. Render highlight view
	page := render.Page(doc)

	return &Result{Doc: doc, Entities: merged, Summary: summary, HTML: page}, nil
}
