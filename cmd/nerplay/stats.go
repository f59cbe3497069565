package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ai-mindset/ner-playground/internal/history"
)

var (
	statsTopN   int
	statsRecent bool
	statsExport string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics from recorded runs",
	Long: `Stats aggregates the run history: totals, the most frequent
entity types across all runs, and the most recent runs.

Example:
  nerplay stats
  nerplay stats --recent
  nerplay stats --export json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().IntVar(&statsTopN, "top", 10, "number of labels in the top list")
	statsCmd.Flags().BoolVar(&statsRecent, "recent", false, "show the recent runs table")
	statsCmd.Flags().StringVar(&statsExport, "export", "", "export format: json|csv")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.History.Path); os.IsNotExist(err) {
		fmt.Println("No runs recorded yet")
		return nil
	}

	ctx := context.Background()
	store, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	st, err := store.Stats(ctx, statsTopN, 20)
	if err != nil {
		return err
	}

	switch strings.ToLower(statsExport) {
	case "":
		if statsRecent {
			printRecentRuns(os.Stdout, st)
			return nil
		}
		printStatsSummary(os.Stdout, st)
		return nil
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "csv":
		if !statsRecent {
			return fmt.Errorf("csv export requires --recent")
		}
		return exportRecentCSV(os.Stdout, st.Recent)
	default:
		return fmt.Errorf("unsupported export format %q", statsExport)
	}
}

func printStatsSummary(w io.Writer, st history.Stats) {
	fmt.Fprintln(w, "nerplay Statistics")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "Runs:        %d\n", st.Runs)
	fmt.Fprintf(w, "Entities:    %d\n", st.Entities)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Top Entity Types")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	if len(st.TopLabels) == 0 {
		fmt.Fprintln(w, "(none recorded)")
		return
	}
	for _, lt := range st.TopLabels {
		fmt.Fprintf(w, "%-20s %5d %s\n", lt.Label, lt.Count, progressBar(lt.Count, st.Entities))
	}
}

func printRecentRuns(w io.Writer, st history.Stats) {
	fmt.Fprintf(w, "Recent Runs (last %d)\n", len(st.Recent))
	fmt.Fprintln(w, strings.Repeat("-", 90))
	fmt.Fprintf(w, "%-20s %-12s %-36s %-8s %s\n", "TIME", "MODEL", "SOURCE", "BYTES", "ENTITIES")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, r := range st.Recent {
		ts := r.CreatedAt.Local().Format("2006-01-02 15:04:05")
		fmt.Fprintf(w, "%-20s %-12s %-36s %-8d %d\n", ts, r.Model, truncate(r.Source, 36), r.TextBytes, r.Entities)
	}
	fmt.Fprintln(w, strings.Repeat("-", 90))
	fmt.Fprintf(w, "Showing %d of %d total runs\n", len(st.Recent), st.Runs)
}

func progressBar(v, total int) string {
	if total <= 0 {
		return ""
	}
	p := int(float64(v) / float64(total) * 20)
	if p > 20 {
		p = 20
	}
	return strings.Repeat("█", p) + strings.Repeat("░", 20-p)
}

func exportRecentCSV(w io.Writer, runs []history.Run) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write([]string{"id", "created_at", "model", "source", "text_bytes", "entities"}); err != nil {
		return err
	}
	for _, r := range runs {
		if err := cw.Write([]string{
			r.ID,
			r.CreatedAt.UTC().Format(time.RFC3339Nano),
			r.Model,
			r.Source,
			strconv.Itoa(r.TextBytes),
			strconv.Itoa(r.Entities),
		}); err != nil {
			return err
		}
	}
	return cw.Error()
}
