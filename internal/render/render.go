// Package render turns an annotated document into a standalone HTML
// page with entity spans highlighted, in the style of displaCy's
// entity visualizer.
package render

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/ai-mindset/ner-playground/internal/annotate"
	"github.com/ai-mindset/ner-playground/internal/entity"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <title>nerplay</title>
</head>
<body style="font-size: 16px; font-family: -apple-system, 'Segoe UI', Roboto, Helvetica, Arial, sans-serif; padding: 4rem 2rem;">
<figure style="margin-bottom: 6rem">
<div class="entities" style="line-height: 2.5; direction: ltr; white-space: pre-wrap">%s</div>
</figure>
</body>
</html>`

const markTemplate = `<mark class="entity" style="background: %s; padding: 0.45em 0.6em; margin: 0 0.25em; line-height: 1; border-radius: 0.35em;">%s<span style="font-size: 0.8em; font-weight: bold; line-height: 1; border-radius: 0.35em; text-transform: uppercase; vertical-align: middle; margin-left: 0.5rem">%s</span></mark>`

// defaultColor highlights labels without an assigned palette entry.
const defaultColor = "#ddd"

var labelColors = map[string]string{
	"ORG":         "#7aecec",
	"PRODUCT":     "#bfeeb7",
	"GPE":         "#feca74",
	"LOC":         "#ff9561",
	"PERSON":      "#aa9cfc",
	"PER":         "#aa9cfc",
	"NORP":        "#c887fb",
	"FAC":         "#9cc9cc",
	"EVENT":       "#ffeb80",
	"LAW":         "#ff8197",
	"LANGUAGE":    "#ff8197",
	"WORK_OF_ART": "#f0d0ff",
	"DATE":        "#bfe1d9",
	"TIME":        "#bfe1d9",
	"MONEY":       "#e4e7d2",
	"QUANTITY":    "#e4e7d2",
	"ORDINAL":     "#e4e7d2",
	"CARDINAL":    "#e4e7d2",
	"PERCENT":     "#e4e7d2",
	"MISC":        "#bfeeb7",
}

// Page renders the document's native entities as a self-contained HTML
// page. Empty documents still produce a valid page with no highlights.
func Page(doc *annotate.Document) string {
	var body strings.Builder
	cursor := 0
	for _, ent := range orderedSpans(doc.Ents) {
		body.WriteString(html.EscapeString(doc.Text[cursor:ent.Start]))
		body.WriteString(markSpan(doc.Text[ent.Start:ent.End], ent.Label))
		cursor = ent.End
	}
	body.WriteString(html.EscapeString(doc.Text[cursor:]))
	return fmt.Sprintf(pageTemplate, body.String())
}

// orderedSpans sorts entities by start offset and drops spans that
// overlap an earlier one, since nested marks do not render.
func orderedSpans(ents []entity.Entity) []entity.Entity {
	sorted := make([]entity.Entity, len(ents))
	copy(sorted, ents)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := sorted[:0]
	cursor := 0
	for _, ent := range sorted {
		if ent.Start < cursor || ent.End < ent.Start {
			continue
		}
		out = append(out, ent)
		cursor = ent.End
	}
	return out
}

func markSpan(text, label string) string {
	return fmt.Sprintf(markTemplate, labelColor(label), html.EscapeString(text), html.EscapeString(label))
}

func labelColor(label string) string {
	if color, ok := labelColors[label]; ok {
		return color
	}
	return defaultColor
}
