package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ai-mindset/ner-playground/internal/models"
)

var downloadAll bool

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage NER models",
}

var modelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known models and their install status",
	RunE:  runModelList,
}

var modelInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show details for one model",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelInfo,
}

var modelDownloadCmd = &cobra.Command{
	Use:   "download <name>",
	Short: "Download and install a model bundle",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runModelDownload,
}

var modelRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an installed model",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelRemove,
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelListCmd, modelInfoCmd, modelDownloadCmd, modelRemoveCmd)

	modelDownloadCmd.Flags().BoolVar(&downloadAll, "all", false, "download all recommended models")
}

func modelContext() (models.Registry, string, error) {
	registry, err := models.LoadEmbeddedRegistry()
	if err != nil {
		return models.Registry{}, "", err
	}
	cfg, err := loadConfig()
	if err != nil {
		return models.Registry{}, "", err
	}
	return registry, cfg.ModelsDir, nil
}

func runModelList(cmd *cobra.Command, args []string) error {
	registry, root, err := modelContext()
	if err != nil {
		return err
	}

	fmt.Println("Available Models")
	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("%-16s %-6s %-8s %-14s %s\n", "NAME", "LANG", "SIZE", "STATUS", "LABELS")
	fmt.Println(strings.Repeat("-", 80))
	installed := 0
	var totalSize int64
	for _, m := range registry.Models {
		status := "not installed"
		switch {
		case m.Builtin:
			status = "builtin"
			installed++
		case models.IsInstalled(root, m):
			status = "installed"
			installed++
			totalSize += m.SizeBytes
		}
		fmt.Printf("%-16s %-6s %-8s %-14s %s\n", m.Name, m.Language, humanBytes(m.SizeBytes), status, strings.Join(m.Labels, ", "))
	}
	fmt.Println(strings.Repeat("-", 80))
	fmt.Printf("Installed: %d/%d models\n", installed, len(registry.Models))
	fmt.Printf("Total size on disk: %s\n", humanBytes(totalSize))
	fmt.Println("\nTip: Use 'nerplay model download <name>' to install a model")
	return nil
}

func runModelInfo(cmd *cobra.Command, args []string) error {
	registry, root, err := modelContext()
	if err != nil {
		return err
	}
	m, ok := registry.Find(args[0])
	if !ok {
		return fmt.Errorf("model %q not found", args[0])
	}

	status := "Not installed"
	if models.IsInstalled(root, m) {
		status = "Installed"
	}
	fmt.Printf("NER Model: %s\n", m.Name)
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Status:         %s\n", status)
	fmt.Printf("Version:        %s\n", m.Version)
	fmt.Printf("Language:       %s\n", m.Language)
	if m.Builtin {
		fmt.Printf("Location:       built in\n")
	} else {
		fmt.Printf("Size:           %s\n", humanBytes(m.SizeBytes))
		fmt.Printf("Location:       %s\n", models.InstallPath(root, m.Name))
	}
	fmt.Printf("Description:    %s\n", m.Description)
	fmt.Printf("Labels:         %s\n", strings.Join(m.Labels, ", "))
	fmt.Printf("Architecture:   %s\n", m.Architecture)
	fmt.Printf("License:        %s\n", m.License)
	if m.URL != "" {
		fmt.Printf("URL:            %s\n", m.URL)
		fmt.Printf("Checksum:       %s\n", m.Checksum)
	}
	return nil
}

func runModelDownload(cmd *cobra.Command, args []string) error {
	registry, root, err := modelContext()
	if err != nil {
		return err
	}

	var selected []models.ModelSpec
	if downloadAll {
		for _, m := range registry.Models {
			if m.Recommended && !m.Builtin {
				selected = append(selected, m)
			}
		}
		if len(selected) == 0 {
			fmt.Println("All recommended models are built in; nothing to download")
			return nil
		}
	} else {
		if len(args) != 1 {
			return fmt.Errorf("usage: nerplay model download <name> or nerplay model download --all")
		}
		m, ok := registry.Find(args[0])
		if !ok {
			return fmt.Errorf("model %q not found", args[0])
		}
		if m.Builtin {
			fmt.Printf("Model %s is built in and always available\n", m.Name)
			return nil
		}
		selected = append(selected, m)
	}

	dl := models.NewDownloader()
	for _, m := range selected {
		fmt.Printf("\nDownloading %s v%s\n", m.Name, m.Version)
		fmt.Printf("Source: %s\n\n", m.URL)
		lastUpdate := time.Time{}
		err := dl.DownloadAndInstall(context.Background(), m, root, func(p models.Progress) {
			if time.Since(lastUpdate) < 120*time.Millisecond && p.Total > 0 {
				return
			}
			lastUpdate = time.Now()
			pct := float64(0)
			if p.Total > 0 {
				pct = float64(p.Downloaded) * 100 / float64(p.Total)
			}
			fmt.Printf("\rDownloading... %6.2f%% | %s / %s | %.2f MB/s | ETA %s",
				pct, humanBytes(p.Downloaded), humanBytes(p.Total), p.SpeedMBps, p.ETA.Truncate(time.Second))
		})
		fmt.Println()
		if err != nil {
			return err
		}
		fmt.Println("Verifying checksum... ✓")
		fmt.Println("Extracting... ✓")
		if !models.IsInstalled(root, m) {
			return fmt.Errorf("model %s installed but its bundle is incomplete", m.Name)
		}
		fmt.Println("Validating bundle... ✓")
		fmt.Printf("\n✓ Model %s installed successfully\n", m.Name)
	}
	return nil
}

func runModelRemove(cmd *cobra.Command, args []string) error {
	registry, root, err := modelContext()
	if err != nil {
		return err
	}
	m, ok := registry.Find(args[0])
	if !ok {
		return fmt.Errorf("model %q not found", args[0])
	}
	if m.Builtin {
		return fmt.Errorf("model %q is built in and cannot be removed", m.Name)
	}
	loc := models.InstallPath(root, m.Name)
	if _, err := os.Stat(loc); err != nil {
		if os.IsNotExist(err) {
			fmt.Printf("Model %s is not installed\n", m.Name)
			return nil
		}
		return err
	}

	fmt.Printf("Remove model '%s' (%s)?\n", m.Name, humanBytes(m.SizeBytes))
	fmt.Printf("This will delete %s\n\n", loc)
	fmt.Print("Continue? (y/N): ")
	r := bufio.NewReader(os.Stdin)
	resp, _ := r.ReadString('\n')
	resp = strings.TrimSpace(strings.ToLower(resp))
	if resp != "y" && resp != "yes" {
		fmt.Println("Cancelled")
		return nil
	}

	if err := models.Remove(root, m); err != nil {
		return err
	}
	fmt.Printf("Model %s removed successfully\n", m.Name)
	return nil
}

func humanBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	const mb = 1024 * 1024
	if n >= mb {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d KB", n/1024)
}
