package annotate

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"

	"github.com/ai-mindset/ner-playground/internal/entity"
)

// proseAnnotator is the bundled pure-Go English model. It recognizes
// PERSON and GPE entities without any external model files.
type proseAnnotator struct {
	model string
}

func newProseAnnotator(model string) Annotator {
	return &proseAnnotator{model: model}
}

func (p *proseAnnotator) Name() string { return p.model }

func (p *proseAnnotator) Annotate(ctx context.Context, text string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := NewDocument(text)
	doc.Model = p.model
	if strings.TrimSpace(text) == "" {
		return doc, nil
	}
	pdoc, err := prose.NewDocument(text)
	if err != nil {
		return nil, fmt.Errorf("failed to annotate with %s: %w", p.model, err)
	}
	doc.Ents = recoverOffsets(text, pdoc.Entities())
	return doc, nil
}

// recoverOffsets locates each prose entity in the original text. Prose
// reports entities in document order without offsets, so a cursor scan
// finds each occurrence after the previous one. Entities whose surface
// text cannot be found (whitespace was normalized away) are skipped.
func recoverOffsets(text string, ents []prose.Entity) []entity.Entity {
	out := make([]entity.Entity, 0, len(ents))
	cursor := 0
	for _, ent := range ents {
		if ent.Text == "" {
			continue
		}
		start := -1
		if idx := strings.Index(text[cursor:], ent.Text); idx >= 0 {
			start = cursor + idx
		} else if idx := strings.Index(text, ent.Text); idx >= 0 {
			start = idx
		}
		if start < 0 {
			continue
		}
		end := start + len(ent.Text)
		out = append(out, entity.Entity{
			Text:        ent.Text,
			Start:       start,
			End:         end,
			Label:       ent.Label,
			Description: Describe(ent.Label),
			Source:      entity.SourceModel,
		})
		if end > cursor {
			cursor = end
		}
	}
	return out
}
