package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ai-mindset/ner-playground/internal/config"
)

var version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "nerplay",
	Short: "Named entity recognition playground",
	Long: `nerplay runs named entity recognition over text documents.

It extracts standard entities with a statistical model, adds custom
pattern matches from a rule table, merges both entity sets, summarizes
the entity types, and renders an HTML view with highlighted spans.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nerplay v%s\n", version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nerplay: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.nerplay/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig points viper at the config file and NERPLAY_* environment
// variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.DefaultDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("NERPLAY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig reads the YAML config and layers viper's view (environment
// variables, explicit config file) on top.
func loadConfig() (*config.Config, error) {
	path := config.DefaultPath()
	if cfgFile != "" {
		path = cfgFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if m := viper.GetString("model"); m != "" {
		cfg.Model = m
	}
	if dir := viper.GetString("models_dir"); dir != "" {
		cfg.ModelsDir = config.ExpandHome(dir)
	}
	return cfg, nil
}
