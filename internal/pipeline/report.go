package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/ai-mindset/ner-playground/internal/entity"
)

// WriteHTML writes the rendered highlight view to path.
func WriteHTML(res *Result, path string) error {
	if err := os.WriteFile(path, []byte(res.HTML), 0o644); err != nil {
		return fmt.Errorf("write html: %w", err)
	}
	return nil
}

// WriteJSON writes the merged entities and summary as indented JSON.
func WriteJSON(res *Result, path string) error {
	payload := struct {
		Model    string            `json:"model"`
		Entities entity.Collection `json:"entities"`
		Summary  entity.Summary    `json:"summary"`
	}{
		Model:    res.Doc.Model,
		Entities: res.Entities,
		Summary:  res.Summary,
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteCSV writes the merged entities as one row per entity with the
// columns Text, Start, End, Type, Description.
func WriteCSV(res *Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{"Text", "Start", "End", "Type", "Description"})
	for _, ent := range res.Entities {
		_ = w.Write([]string{
			ent.Text,
			strconv.Itoa(ent.Start),
			strconv.Itoa(ent.End),
			ent.Label,
			ent.Description,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
