package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ai-mindset/ner-playground/internal/annotate"
	"github.com/ai-mindset/ner-playground/internal/history"
	"github.com/ai-mindset/ner-playground/internal/pipeline"
	"github.com/ai-mindset/ner-playground/internal/worker"
)

var (
	batchModel       string
	batchRules       string
	batchConcurrency int
	batchOutputDir   string
	batchNoHistory   bool
	batchTimeout     time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <dir|list-file>",
	Short: "Analyze many documents concurrently",
	Long: `Batch analyzes every text document in a directory, or every path
listed in a file (one per line, # comments allowed), using a pool of
workers. Per-file HTML and JSON reports can be written to an output
directory; a combined summary table is printed at the end.

Example:
  nerplay batch ./reports --concurrency 4 --output-dir ./out
  nerplay batch documents.list -m prose-en`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchModel, "model", "m", "", "model name (default from config)")
	batchCmd.Flags().StringVar(&batchRules, "rules", "", "pattern rule table (YAML) replacing the built-in one")
	batchCmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 4, "number of documents analyzed in parallel")
	batchCmd.Flags().StringVarP(&batchOutputDir, "output-dir", "o", "", "write per-document HTML and JSON reports here")
	batchCmd.Flags().BoolVar(&batchNoHistory, "no-history", false, "do not record these runs")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "whole-batch timeout")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	model := batchModel
	if model == "" {
		model = cfg.Model
	}

	rules, err := loadRuleTable(cfg, batchRules)
	if err != nil {
		return err
	}
	p, err := pipeline.New(annotate.NewLoader(cfg.ModelsDir), rules)
	if err != nil {
		return err
	}

	paths, err := collectDocuments(args[0])
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents found in %s", args[0])
	}

	if batchOutputDir != "" {
		if err := os.MkdirAll(batchOutputDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	var store *history.Store
	if !batchNoHistory && !cfg.History.Disabled {
		store, err = openHistory(ctx, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: history: %v\n", err)
		} else {
			defer store.Close()
		}
	}

	fmt.Printf("Analyzing %d documents with model %s (%d workers)\n\n", len(paths), model, batchConcurrency)
	processor := worker.NewBatchProcessor(p, model, batchConcurrency)
	results := processor.ProcessFiles(ctx, paths)

	failed := 0
	totals := map[string]int{}
	totalEntities := 0

	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("%-40s %-10s %-8s %s\n", "DOCUMENT", "ENTITIES", "TYPES", "STATUS")
	fmt.Println(strings.Repeat("-", 80))
	for _, r := range results {
		name := filepath.Base(r.Path)
		if r.Err != nil {
			failed++
			fmt.Printf("%-40s %-10s %-8s %v\n", truncate(name, 40), "-", "-", r.Err)
			continue
		}
		fmt.Printf("%-40s %-10d %-8d ok\n", truncate(name, 40), len(r.Result.Entities), len(r.Result.Summary))
		totalEntities += len(r.Result.Entities)
		for _, row := range r.Result.Summary {
			totals[row.Label] += row.Count
		}
		if batchOutputDir != "" {
			if err := writeReports(r); err != nil {
				return err
			}
		}
		if store != nil {
			if _, err := store.RecordRun(ctx, model, r.Path, len(r.Result.Doc.Text), r.Result.Summary); err != nil {
				fmt.Fprintf(os.Stderr, "warning: record run: %v\n", err)
			}
		}
	}
	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Processed: %d/%d documents, %d entities\n", len(results)-failed, len(results), totalEntities)

	if len(totals) > 0 {
		fmt.Println("\nEntity types across all documents:")
		for _, row := range sortTotals(totals) {
			fmt.Printf("%-26s %d\n", row.label, row.count)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

// collectDocuments expands the batch argument into document paths: a
// directory yields its text files, anything else is read as a list of
// paths.
func collectDocuments(arg string) ([]string, error) {
	info, err := os.Stat(arg)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", arg, err)
	}
	if info.IsDir() {
		return worker.ListTextFiles(arg)
	}
	return readPathList(arg)
}

func readPathList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open list: %w", err)
	}
	defer f.Close()

	var paths []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan list: %w", err)
	}
	return paths, nil
}

func writeReports(r worker.FileResult) error {
	base := strings.TrimSuffix(filepath.Base(r.Path), filepath.Ext(r.Path))
	htmlPath := filepath.Join(batchOutputDir, base+".html")
	if err := pipeline.WriteHTML(r.Result, htmlPath); err != nil {
		return err
	}
	jsonPath := filepath.Join(batchOutputDir, base+".json")
	return pipeline.WriteJSON(r.Result, jsonPath)
}

type labelTotal struct {
	label string
	count int
}

func sortTotals(totals map[string]int) []labelTotal {
	out := make([]labelTotal, 0, len(totals))
	for label, count := range totals {
		out = append(out, labelTotal{label, count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].label < out[j].label
	})
	return out
}
