package annotate

import (
	"context"
	"errors"
	"strings"
	"testing"

	gocache "github.com/patrickmn/go-cache"
)

func TestLoaderBlankModel(t *testing.T) {
	loader := NewLoader(t.TempDir())
	ann, err := loader.Load("blank-en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ann.Name() != "blank-en" {
		t.Fatalf("expected model name blank-en, got %q", ann.Name())
	}
	doc, err := ann.Annotate(context.Background(), "Nairobi households burn charcoal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Tokens) != 4 {
		t.Fatalf("expected 4 tokens, got %d", len(doc.Tokens))
	}
	if len(doc.Ents) != 0 {
		t.Fatalf("blank model must not produce entities, got %d", len(doc.Ents))
	}
}

func TestLoaderUnknownModel(t *testing.T) {
	loader := NewLoader(t.TempDir())
	ann, err := loader.Load("does-not-exist")
	if err == nil {
		t.Fatal("expected an error for an unknown model")
	}
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if ann != nil {
		t.Fatalf("no annotator should be returned on failure, got %v", ann)
	}
	if !strings.Contains(err.Error(), "nerplay model download does-not-exist") {
		t.Fatalf("error should tell the user how to install the model, got %q", err)
	}
}

func TestLoaderDefaultsAndCaches(t *testing.T) {
	loader := NewLoader(t.TempDir())
	first, err := loader.Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Name() != DefaultModel {
		t.Fatalf("empty name should resolve to %s, got %q", DefaultModel, first.Name())
	}
	second, err := loader.Load(DefaultModel)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatal("expected the cached annotator on the second load")
	}
}

type closableAnnotator struct {
	Annotator
	closed bool
}

func (c *closableAnnotator) Close() error {
	c.closed = true
	return nil
}

func TestLoaderClosesEvictedAnnotators(t *testing.T) {
	loader := NewLoader(t.TempDir())
	ann := &closableAnnotator{Annotator: Blank("blank-en")}
	loader.cache.Set("stub", ann, gocache.DefaultExpiration)

	loader.cache.Delete("stub")
	if !ann.closed {
		t.Fatal("expected the evicted annotator to be closed")
	}
}

func TestBlankHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Blank("blank-en").Annotate(ctx, "text"); err == nil {
		t.Fatal("expected a context error")
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe("ORG"); got != "Companies, agencies, institutions, etc." {
		t.Fatalf("unexpected ORG description %q", got)
	}
	if got := Describe("NO_SUCH_LABEL"); got != "" {
		t.Fatalf("unknown labels should have no description, got %q", got)
	}
}
