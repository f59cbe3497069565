package main

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ai-mindset/ner-playground/internal/annotate"
	"github.com/ai-mindset/ner-playground/internal/config"
	"github.com/ai-mindset/ner-playground/internal/fetch"
	"github.com/ai-mindset/ner-playground/internal/history"
	"github.com/ai-mindset/ner-playground/internal/match"
	"github.com/ai-mindset/ner-playground/internal/pipeline"
)

//go:embed sample.txt
var sampleText string

var (
	analyzeModel     string
	analyzeText      string
	analyzeURL       string
	analyzeRules     string
	analyzeHTML      string
	analyzeJSON      string
	analyzeCSV       string
	analyzeNoHistory bool
	analyzeWatch     bool
	analyzeTimeout   time.Duration
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [path]",
	Short: "Run entity analysis over a document",
	Long: `Analyze extracts named entities from a document, adds custom
pattern matches, and prints the merged entity table with a per-type
summary. The highlighted document is written as an HTML page.

With no arguments a bundled sample report is analyzed. Pass a file
path, "-" for stdin, --text for a literal string, or --url to fetch a
web page first.

Example:
  nerplay analyze report.txt
  nerplay analyze --text "Kenya relies on charcoal and biomass."
  nerplay analyze --url https://example.org/energy --html out.html
  nerplay analyze report.txt --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeModel, "model", "m", "", "model name (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeText, "text", "", "analyze this literal text")
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "fetch and analyze this URL")
	analyzeCmd.Flags().StringVar(&analyzeRules, "rules", "", "pattern rule table (YAML) replacing the built-in one")
	analyzeCmd.Flags().StringVar(&analyzeHTML, "html", "", "highlight view output path (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeJSON, "json", "", "write entities and summary as JSON to this path")
	analyzeCmd.Flags().StringVar(&analyzeCSV, "csv", "", "write the entity table as CSV to this path")
	analyzeCmd.Flags().BoolVar(&analyzeNoHistory, "no-history", false, "do not record this run")
	analyzeCmd.Flags().BoolVar(&analyzeWatch, "watch", false, "re-run when the input file changes")
	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 2*time.Minute, "per-run timeout")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeText != "" && analyzeURL != "" {
		return fmt.Errorf("--text and --url are mutually exclusive")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	model := analyzeModel
	if model == "" {
		model = cfg.Model
	}
	htmlOut := analyzeHTML
	if htmlOut == "" {
		htmlOut = cfg.HTMLOut
	}

	rules, err := loadRuleTable(cfg, analyzeRules)
	if err != nil {
		return err
	}
	p, err := pipeline.New(annotate.NewLoader(cfg.ModelsDir), rules)
	if err != nil {
		return err
	}

	if analyzeWatch {
		if len(args) != 1 || args[0] == "-" {
			return fmt.Errorf("--watch requires a file argument")
		}
		return watchAndAnalyze(p, cfg, args[0], model, htmlOut)
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	source, text, err := resolveInput(ctx, cfg, args)
	if err != nil {
		return err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Analyzing %s (%d bytes) with model %s\n\n", source, len(text), model)
	}
	return analyzeOnce(ctx, p, cfg, model, htmlOut, source, text)
}

// loadRuleTable resolves the pattern rule table: the --rules flag wins,
// then the config path, then the built-in table (nil lets pipeline.New
// fall back to it).
func loadRuleTable(cfg *config.Config, flagPath string) ([]match.Rule, error) {
	path := flagPath
	if path == "" {
		path = cfg.RulesPath
	}
	if path == "" {
		return nil, nil
	}
	return match.LoadRules(path)
}

func resolveInput(ctx context.Context, cfg *config.Config, args []string) (source, text string, err error) {
	switch {
	case analyzeText != "":
		return "inline", analyzeText, nil
	case analyzeURL != "":
		f := fetch.New(cfg.Fetch.Timeout(), cfg.Fetch.UserAgent, cfg.Fetch.MaxBodyBytes, cfg.Fetch.MaxRedirects)
		page, err := f.Fetch(ctx, analyzeURL)
		if err != nil {
			return "", "", err
		}
		return analyzeURL, page.Text, nil
	case len(args) == 1 && args[0] == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return "stdin", string(data), nil
	case len(args) == 1:
		text, err := readDocument(args[0])
		if err != nil {
			return "", "", err
		}
		return args[0], text, nil
	default:
		return "sample", sampleText, nil
	}
}

// readDocument reads a file, reducing HTML files to their visible text.
func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return fetch.VisibleText(bytes.NewReader(data))
	}
	return string(data), nil
}

func analyzeOnce(ctx context.Context, p *pipeline.Pipeline, cfg *config.Config, model, htmlOut, source, text string) error {
	res, err := p.Analyze(ctx, text, model)
	if err != nil {
		return err
	}

	printResult(os.Stdout, res)

	if htmlOut != "" {
		if err := pipeline.WriteHTML(res, htmlOut); err != nil {
			return err
		}
		fmt.Printf("\nEntity visualization saved to %s\n", htmlOut)
	}
	if analyzeJSON != "" {
		if err := pipeline.WriteJSON(res, analyzeJSON); err != nil {
			return err
		}
		fmt.Printf("Entities saved to %s\n", analyzeJSON)
	}
	if analyzeCSV != "" {
		if err := pipeline.WriteCSV(res, analyzeCSV); err != nil {
			return err
		}
		fmt.Printf("Entity table saved to %s\n", analyzeCSV)
	}

	if !analyzeNoHistory && !cfg.History.Disabled {
		recordRun(ctx, cfg, model, source, len(text), res)
	}
	return nil
}

// openHistory opens the run store, creating its directory first.
func openHistory(ctx context.Context, cfg *config.Config) (*history.Store, error) {
	if err := config.EnsureDir(cfg.History.Path); err != nil {
		return nil, err
	}
	return history.Open(ctx, cfg.History.Path)
}

// recordRun appends the run to the history store. History failures are
// reported but never fail the analysis.
func recordRun(ctx context.Context, cfg *config.Config, model, source string, textBytes int, res *pipeline.Result) {
	store, err := openHistory(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: record run: %v\n", err)
		return
	}
	defer store.Close()
	if _, err := store.RecordRun(ctx, model, source, textBytes, res.Summary); err != nil {
		fmt.Fprintf(os.Stderr, "warning: record run: %v\n", err)
	}
}

func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "Found %d entities of %d different types\n", len(res.Entities), len(res.Summary))

	fmt.Fprintln(w, "\nEntity types distribution:")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "%-26s %s\n", "ENTITY TYPE", "COUNT")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	for _, row := range res.Summary {
		fmt.Fprintf(w, "%-26s %d\n", row.Label, row.Count)
	}

	fmt.Fprintln(w, "\nEntities found (sorted by position):")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "%-30s %-18s %s\n", "TEXT", "TYPE", "DESCRIPTION")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, e := range res.Entities {
		fmt.Fprintf(w, "%-30s %-18s %s\n", truncate(e.Text, 30), e.Label, e.Description)
	}
}

// truncate trims s to n runes so a cut never splits a multi-byte rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// watchAndAnalyze runs one analysis, then re-runs it whenever the input
// file is written. The directory is watched so editors that replace the
// file on save keep triggering events.
func watchAndAnalyze(p *pipeline.Pipeline, cfg *config.Config, path, model, htmlOut string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
		defer cancel()
		text, err := readDocument(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "nerplay: %v\n", err)
			return
		}
		if err := analyzeOnce(ctx, p, cfg, model, htmlOut, path, text); err != nil {
			fmt.Fprintf(os.Stderr, "nerplay: %v\n", err)
		}
	}
	run()
	fmt.Fprintf(os.Stderr, "\nWatching %s for changes (Ctrl+C to stop)\n", path)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	target := filepath.Clean(path)
	var lastRun time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			// Editors fire several events per save.
			if time.Since(lastRun) < 200*time.Millisecond {
				continue
			}
			lastRun = time.Now()
			run()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "nerplay: watch: %v\n", err)
		case <-sigCh:
			return nil
		}
	}
}
