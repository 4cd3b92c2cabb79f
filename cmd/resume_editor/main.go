// Package main provides the resume_editor CLI: the HTTP API server and one-shot edits of
// resume documents stored as JSON files.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-editor/internal/config"
	"github.com/jonathan/resume-editor/internal/logging"
)

var (
	verbose    bool
	configPath string

	// set by PersistentPreRunE
	appConfig config.Config
	logger    = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "resume_editor",
	Short: "Resume editor API server and document tools",
	Long: "Resume editor serves the CV editing API and edits resume JSON documents from the command line: " +
		"field edits, section lists, schema validation and AI rewrites of text fields.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON or YAML config file")
}

// setup loads configuration and builds the logger before any command runs.
func setup(_ *cobra.Command, _ []string) error {
	cfg := config.Config{}
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	cfg = cfg.MergeWithDefaults(config.Defaults())
	cfg.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	appConfig = cfg

	l, err := logging.New(verbose || cfg.Verbose)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
