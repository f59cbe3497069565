package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ai-mindset/ner-playground/internal/annotate"
	"github.com/ai-mindset/ner-playground/internal/entity"
	"github.com/ai-mindset/ner-playground/internal/match"
)

type stubAnnotator struct {
	ents []entity.Entity
}

func (s stubAnnotator) Name() string { return "stub" }

func (s stubAnnotator) Annotate(ctx context.Context, text string) (*annotate.Document, error) {
	doc := annotate.NewDocument(text)
	doc.Model = "stub"
	doc.Ents = s.ents
	return doc, nil
}

type stubLoader struct {
	ann annotate.Annotator
}

func (s stubLoader) Load(string) (annotate.Annotator, error) { return s.ann, nil }

func TestAnalyzeMergesNativeAndCustom(t *testing.T) {
	text := "Kenya relies on charcoal and biomass."
	native := []entity.Entity{
		{Text: "Kenya", Start: 0, End: 5, Label: "GPE",
			Description: "Countries, cities, states", Source: entity.SourceModel},
	}
	p, err := New(stubLoader{ann: stubAnnotator{ents: native}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := p.Analyze(context.Background(), text, "stub")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One native GPE plus custom GEOG, ENERGY_SOURCE, ENERGY_SOURCE.
	if len(res.Entities) != 4 {
		t.Fatalf("expected 4 entities, got %d: %+v", len(res.Entities), res.Entities)
	}
	for i := 1; i < len(res.Entities); i++ {
		if res.Entities[i-1].Start > res.Entities[i].Start {
			t.Fatalf("entities not sorted by start: %+v", res.Entities)
		}
	}
	if res.Entities[0].Source != entity.SourceModel || res.Entities[0].Label != "GPE" {
		t.Errorf("native entity should come first on equal offsets, got %+v", res.Entities[0])
	}
	if res.Entities[1].Source != entity.SourcePattern || res.Entities[1].Label != "GEOG" {
		t.Errorf("custom duplicate should be kept after the native one, got %+v", res.Entities[1])
	}

	if res.Summary.Total() != len(res.Entities) {
		t.Errorf("summary counts must sum to the entity count: %d != %d",
			res.Summary.Total(), len(res.Entities))
	}
	if res.Summary[0].Label != "ENERGY_SOURCE" || res.Summary[0].Count != 2 {
		t.Errorf("expected ENERGY_SOURCE x2 first in the summary, got %+v", res.Summary)
	}

	if !strings.Contains(res.HTML, "<!DOCTYPE html>") {
		t.Error("expected a rendered highlight page")
	}
}

func TestAnalyzeEmptyText(t *testing.T) {
	p, err := New(annotate.NewLoader(t.TempDir()), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := p.Analyze(context.Background(), "", "blank-en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entities) != 0 {
		t.Errorf("expected no entities, got %+v", res.Entities)
	}
	if len(res.Summary) != 0 {
		t.Errorf("expected an empty summary, got %+v", res.Summary)
	}
	if !strings.Contains(res.HTML, "</html>") {
		t.Error("empty input must still render a valid page")
	}
}

func TestAnalyzeModelUnavailable(t *testing.T) {
	p, err := New(annotate.NewLoader(t.TempDir()), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := p.Analyze(context.Background(), "some text", "does-not-exist")
	if !errors.Is(err, annotate.ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if res != nil {
		t.Fatalf("no partial result may be returned, got %+v", res)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	p, err := New(annotate.NewLoader(t.TempDir()), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := "Charcoal use in Nairobi drives respiratory infections."
	first, err := p.Analyze(context.Background(), text, "blank-en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := p.Analyze(context.Background(), text, "blank-en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first.Entities, second.Entities) {
		t.Error("entity collections differ between identical runs")
	}
	if !reflect.DeepEqual(first.Summary, second.Summary) {
		t.Error("summaries differ between identical runs")
	}
}

func TestAnalyzeCustomRuleTable(t *testing.T) {
	rules := []match.Rule{
		{Label: "FUEL", Patterns: [][]match.Constraint{{{Lower: "ethanol"}}}},
	}
	p, err := New(annotate.NewLoader(t.TempDir()), rules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := p.Analyze(context.Background(), "Ethanol and charcoal", "blank-en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entities) != 1 || res.Entities[0].Label != "FUEL" {
		t.Fatalf("custom table should fully replace the default, got %+v", res.Entities)
	}
}

func TestReportWriters(t *testing.T) {
	p, err := New(annotate.NewLoader(t.TempDir()), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := p.Analyze(context.Background(), "Kenya burns charcoal.", "blank-en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	dir := t.TempDir()

	htmlPath := filepath.Join(dir, "view.html")
	if err := WriteHTML(res, htmlPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page, err := os.ReadFile(htmlPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(page), "<!DOCTYPE html>") {
		t.Error("unexpected html payload")
	}

	jsonPath := filepath.Join(dir, "report.json")
	if err := WriteJSON(res, jsonPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Model    string            `json:"model"`
		Entities entity.Collection `json:"entities"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("report is not valid json: %v", err)
	}
	if decoded.Model != "blank-en" || len(decoded.Entities) != 2 {
		t.Errorf("unexpected json report: %+v", decoded)
	}

	csvPath := filepath.Join(dir, "report.csv")
	if err := WriteCSV(res, csvPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("report is not valid csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected a header and 2 rows, got %d", len(rows))
	}
	if rows[0][3] != "Type" || rows[1][0] != "Kenya" {
		t.Errorf("unexpected csv layout: %v", rows)
	}
}
