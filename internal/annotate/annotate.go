// Package annotate loads NER models and runs them over raw text,
// producing tokenized documents with labeled entity spans.
//
// Two model families are supported: bundled pure-Go models (prose-en,
// blank-en) that work without any installation step, and ONNX bundles
// installed under the models directory by the model downloader.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultModel is the model used when no name is given.
const DefaultModel = "prose-en"

// ErrModelUnavailable reports that a model is neither bundled nor
// installed. Callers can match it with errors.Is.
var ErrModelUnavailable = errors.New("model unavailable")

// Annotator turns raw text into a tokenized document whose Ents hold
// the model's native entities.
type Annotator interface {
	// Annotate runs the model over text. It never returns a partially
	// annotated document together with an error.
	Annotate(ctx context.Context, text string) (*Document, error)
	// Name reports the model name the annotator was loaded from.
	Name() string
}

// Loader resolves model names to annotators. Resolved annotators are
// cached so repeated analyses reuse the same session and vocabulary.
type Loader struct {
	root  string
	cache *gocache.Cache
}

// NewLoader returns a loader that resolves ONNX bundles under root.
func NewLoader(root string) *Loader {
	cache := gocache.New(30*time.Minute, time.Hour)
	cache.OnEvicted(closeEvicted)
	return &Loader{root: root, cache: cache}
}

// closeEvicted releases annotators that hold native resources, such as
// an onnxruntime session, when the cache drops them.
func closeEvicted(_ string, value interface{}) {
	if c, ok := value.(io.Closer); ok {
		_ = c.Close()
	}
}

// Load resolves a model name, trying bundled models first and installed
// ONNX bundles second. Unknown or missing names yield an error wrapping
// ErrModelUnavailable; no annotator is returned in that case.
func (l *Loader) Load(name string) (Annotator, error) {
	if name == "" {
		name = DefaultModel
	}
	if hit, ok := l.cache.Get(name); ok {
		return hit.(Annotator), nil
	}
	ann, err := l.build(name)
	if err != nil {
		return nil, err
	}
	l.cache.Set(name, ann, gocache.DefaultExpiration)
	return ann, nil
}

func (l *Loader) build(name string) (Annotator, error) {
	switch name {
	case "prose-en":
		return newProseAnnotator(name), nil
	case "blank-en":
		return Blank(name), nil
	}
	dir := filepath.Join(l.root, name)
	if _, err := os.Stat(filepath.Join(dir, "model.onnx")); err != nil {
		return nil, fmt.Errorf("%w: %s (install it with: nerplay model download %s)", ErrModelUnavailable, name, name)
	}
	return newONNXAnnotator(name, dir)
}

// Blank returns an annotator that tokenizes text but recognizes no
// entities. It backs the blank-en model and is handy in tests.
func Blank(model string) Annotator { return blankAnnotator{model: model} }

type blankAnnotator struct{ model string }

func (b blankAnnotator) Name() string { return b.model }

func (b blankAnnotator) Annotate(ctx context.Context, text string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := NewDocument(text)
	doc.Model = b.model
	return doc, nil
}
