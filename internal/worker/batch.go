// Package worker runs entity analysis over many files concurrently.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ai-mindset/ner-playground/internal/pipeline"
)

// Analyzer produces an analysis for one text. *pipeline.Pipeline
// satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, text, model string) (*pipeline.Result, error)
}

// FileResult is the outcome of analyzing one file.
type FileResult struct {
	Path   string
	Result *pipeline.Result
	Err    error
}

// BatchProcessor analyzes files with a fixed number of workers.
type BatchProcessor struct {
	analyzer    Analyzer
	model       string
	concurrency int
}

// NewBatchProcessor returns a processor that analyzes with the named
// model using up to concurrency workers.
func NewBatchProcessor(analyzer Analyzer, model string, concurrency int) *BatchProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BatchProcessor{
		analyzer:    analyzer,
		model:       model,
		concurrency: concurrency,
	}
}

// ProcessFiles analyzes each path and returns one result per path, in
// input order. Per-file failures are reported in FileResult.Err rather
// than aborting the batch.
func (b *BatchProcessor) ProcessFiles(ctx context.Context, paths []string) []FileResult {
	results := make([]FileResult, len(paths))
	if len(paths) == 0 {
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < b.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = b.processOne(ctx, paths[idx])
			}
		}()
	}

submit:
	for i := range paths {
		select {
		case <-ctx.Done():
			break submit
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	// Jobs never submitted because the context ended still get a result.
	for i := range results {
		if results[i].Path == "" {
			results[i] = FileResult{Path: paths[i], Err: ctx.Err()}
		}
	}
	return results
}

func (b *BatchProcessor) processOne(ctx context.Context, path string) FileResult {
	if err := ctx.Err(); err != nil {
		return FileResult{Path: path, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{Path: path, Err: fmt.Errorf("read file: %w", err)}
	}
	result, err := b.analyzer.Analyze(ctx, string(data), b.model)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}
	return FileResult{Path: path, Result: result}
}

// ListTextFiles returns the text documents directly under dir, sorted
// by name. Hidden files are skipped.
func ListTextFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md", ".text":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
