package render

import (
	"strings"
	"testing"

	"github.com/ai-mindset/ner-playground/internal/annotate"
	"github.com/ai-mindset/ner-playground/internal/entity"
)

func TestPageHighlightsEntities(t *testing.T) {
	doc := annotate.NewDocument("Amina visited Nairobi")
	doc.Ents = []entity.Entity{
		{Text: "Amina", Start: 0, End: 5, Label: "PERSON", Source: entity.SourceModel},
		{Text: "Nairobi", Start: 14, End: 21, Label: "GPE", Source: entity.SourceModel},
	}

	page := Page(doc)
	if !strings.HasPrefix(page, "<!DOCTYPE html>") {
		t.Fatal("expected a full HTML page")
	}
	if got := strings.Count(page, `<mark class="entity"`); got != 2 {
		t.Fatalf("expected 2 highlighted spans, got %d", got)
	}
	if !strings.Contains(page, ">PERSON</span>") || !strings.Contains(page, ">GPE</span>") {
		t.Fatal("expected label chips for PERSON and GPE")
	}
	if !strings.Contains(page, "#aa9cfc") || !strings.Contains(page, "#feca74") {
		t.Fatal("expected the palette colors for PERSON and GPE")
	}
	if !strings.Contains(page, " visited ") {
		t.Fatal("expected the plain text between entities to survive")
	}
}

func TestPageEmptyDocument(t *testing.T) {
	page := Page(annotate.NewDocument(""))
	if !strings.HasPrefix(page, "<!DOCTYPE html>") || !strings.Contains(page, "</html>") {
		t.Fatal("empty input must still produce a valid page")
	}
	if strings.Contains(page, "<mark") {
		t.Fatal("empty input must not produce highlights")
	}
}

func TestPageEscapesText(t *testing.T) {
	doc := annotate.NewDocument("<script>alert(1)</script> in Kenya")
	doc.Ents = []entity.Entity{
		{Text: "Kenya", Start: 29, End: 34, Label: "GPE", Source: entity.SourceModel},
	}

	page := Page(doc)
	if strings.Contains(page, "<script>") {
		t.Fatal("document text must be escaped")
	}
	if !strings.Contains(page, "&lt;script&gt;") {
		t.Fatal("expected the escaped form of the script tag")
	}
}

func TestPageSkipsOverlappingSpans(t *testing.T) {
	doc := annotate.NewDocument("sub-Saharan Africa")
	doc.Ents = []entity.Entity{
		{Text: "sub-Saharan Africa", Start: 0, End: 18, Label: "LOC", Source: entity.SourceModel},
		{Text: "Africa", Start: 12, End: 18, Label: "GPE", Source: entity.SourceModel},
	}

	page := Page(doc)
	if got := strings.Count(page, `<mark class="entity"`); got != 1 {
		t.Fatalf("overlapping spans cannot nest, expected 1 mark, got %d", got)
	}
}

func TestPageUnknownLabelUsesDefaultColor(t *testing.T) {
	doc := annotate.NewDocument("charcoal")
	doc.Ents = []entity.Entity{
		{Text: "charcoal", Start: 0, End: 8, Label: "ENERGY_SOURCE", Source: entity.SourcePattern},
	}

	page := Page(doc)
	if !strings.Contains(page, defaultColor) {
		t.Fatalf("labels outside the palette should fall back to %s", defaultColor)
	}
}
