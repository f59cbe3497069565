package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/ai-mindset/ner-playground/internal/entity"
)

// onnxSeqLen is the fixed input length for token classification models.
const onnxSeqLen = 256

// onnxAnnotator runs a BERT-style token classification model from an
// installed bundle: model.onnx, labels.json, and a WordPiece vocab.
type onnxAnnotator struct {
	model     string
	session   *ort.AdvancedSession
	tokenizer *wordPiece
	labels    []string

	inputIDs      *ort.Tensor[int64]
	attentionMask *ort.Tensor[int64]
	output        *ort.Tensor[float32]

	mu     sync.Mutex
	closed bool
}

func newONNXAnnotator(model, dir string) (*onnxAnnotator, error) {
	libPath := resolveSharedLibraryPath(dir)
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	modelPath := filepath.Join(dir, "model.onnx")
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}
	labels, err := loadLabels(filepath.Join(dir, "labels.json"))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	tokenizer, err := loadWordPiece(dir)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	inputShape := ort.NewShape(1, int64(onnxSeqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	outputShape := ort.NewShape(1, int64(onnxSeqLen), int64(len(labels)))
	output, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &onnxAnnotator{
		model:         model,
		session:       session,
		tokenizer:     tokenizer,
		labels:        labels,
		inputIDs:      inputIDs,
		attentionMask: attnMask,
		output:        output,
	}, nil
}

func (a *onnxAnnotator) Name() string { return a.model }

func (a *onnxAnnotator) Annotate(ctx context.Context, text string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := NewDocument(text)
	doc.Model = a.model
	if len(doc.Tokens) == 0 {
		return doc, nil
	}

	ids, mask, wordIdx := a.tokenizer.encodeWords(doc.Tokens, onnxSeqLen)

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, fmt.Errorf("model %s: annotator is closed", a.model)
	}

	copy(a.inputIDs.GetData(), ids)
	copy(a.attentionMask.GetData(), mask)

	if err := a.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	doc.Ents = a.decode(doc, wordIdx)
	return doc, nil
}

// Close releases the onnxruntime session and its tensors. Annotate
// fails after Close.
func (a *onnxAnnotator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	err := a.session.Destroy()
	if e := a.inputIDs.Destroy(); err == nil {
		err = e
	}
	if e := a.attentionMask.Destroy(); err == nil {
		err = e
	}
	if e := a.output.Destroy(); err == nil {
		err = e
	}
	return err
}

// decode picks the argmax label from each word's first piece and merges
// the BIO sequence into entity spans.
func (a *onnxAnnotator) decode(doc *Document, wordIdx []int) []entity.Entity {
	logits := a.output.GetData()
	nLabels := len(a.labels)

	wordLabels := make([]string, len(doc.Tokens))
	for i := range wordLabels {
		wordLabels[i] = "O"
	}
	seen := make([]bool, len(doc.Tokens))
	for pos, wi := range wordIdx {
		if wi < 0 || wi >= len(doc.Tokens) || seen[wi] {
			continue
		}
		seen[wi] = true
		offset := pos * nLabels
		if offset+nLabels > len(logits) {
			break
		}
		best := 0
		for j := 1; j < nLabels; j++ {
			if logits[offset+j] > logits[offset+best] {
				best = j
			}
		}
		wordLabels[wi] = a.labels[best]
	}

	spans := mergeBIO(doc.Tokens, wordLabels)
	out := make([]entity.Entity, 0, len(spans))
	for _, s := range spans {
		label := strings.ToUpper(s.label)
		out = append(out, entity.Entity{
			Text:        doc.Text[s.start:s.end],
			Start:       s.start,
			End:         s.end,
			Label:       label,
			Description: Describe(label),
			Source:      entity.SourceModel,
		})
	}
	return out
}

type bioSpan struct {
	label      string
	start, end int
}

// mergeBIO collapses per-word B-X/I-X tags into contiguous spans. A B
// tag or a type change starts a new span; O and malformed tags end the
// current one.
func mergeBIO(words []Token, labels []string) []bioSpan {
	out := make([]bioSpan, 0)
	var cur *bioSpan
	for i := range words {
		label := labels[i]
		if label == "O" || label == "" {
			if cur != nil {
				out = append(out, *cur)
				cur = nil
			}
			continue
		}
		parts := strings.SplitN(label, "-", 2)
		if len(parts) != 2 {
			continue
		}
		prefix, typ := parts[0], parts[1]
		if prefix != "B" && prefix != "I" {
			continue
		}
		if prefix == "B" || cur == nil || cur.label != typ {
			if cur != nil {
				out = append(out, *cur)
			}
			cur = &bioSpan{label: typ, start: words[i].Start, end: words[i].End}
			continue
		}
		cur.end = words[i].End
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil && len(arr) > 0 {
		return arr, nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	out := make([]string, len(m))
	for k, v := range m {
		idx, convErr := strconv.Atoi(k)
		if convErr != nil {
			return nil, fmt.Errorf("invalid label index %q: %w", k, convErr)
		}
		if idx < 0 || idx >= len(m) {
			return nil, fmt.Errorf("label index %d out of range", idx)
		}
		out[idx] = v
	}
	return out, nil
}

// resolveSharedLibraryPath locates the onnxruntime shared library. The
// ONNXRUNTIME_SHARED_LIBRARY_PATH environment variable wins; otherwise
// common names and locations are probed, starting with the bundle.
func resolveSharedLibraryPath(bundleDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		bundleDir,
		filepath.Join(bundleDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
