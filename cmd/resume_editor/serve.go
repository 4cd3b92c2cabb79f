package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-editor/internal/assist"
	"github.com/jonathan/resume-editor/internal/db"
	"github.com/jonathan/resume-editor/internal/llm"
	"github.com/jonathan/resume-editor/internal/server"
)

var (
	servePort   int
	serveMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: "Start an HTTP server that exposes the CV editing API. CVs are stored in PostgreSQL " +
		"(DATABASE_URL) unless --memory is set. AI rewrites are enabled when GEMINI_API_KEY is set.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: config port, 8080)")
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "Keep CVs in memory instead of PostgreSQL")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var store db.Store
	if serveMemory {
		store = db.NewMemoryStore()
		logger.Warn("using in-memory store; CVs are lost on exit")
	} else {
		if appConfig.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required (or use --memory)")
		}
		database, err := db.Connect(ctx, appConfig.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := database.Migrate(ctx); err != nil {
			return err
		}
		store = database
	}

	var rewriter *assist.Rewriter
	if appConfig.APIKey != "" {
		var tier llm.ModelTier
		if appConfig.ModelTier != "" {
			t, err := llm.ParseTier(appConfig.ModelTier)
			if err != nil {
				return err
			}
			tier = t
		}
		client, err := newLLMClient(ctx, llm.DefaultConfig(), appConfig.APIKey)
		if err != nil {
			return err
		}
		defer client.Close() //nolint:errcheck
		rewriter = assist.NewRewriter(client, tier, logger)
	} else {
		logger.Warn("GEMINI_API_KEY not set; AI rewrites are disabled")
	}

	port := appConfig.Port
	if servePort != 0 {
		port = servePort
	}

	srv := server.New(server.Config{
		Port:                  port,
		TransformTimeout:      appConfig.Timeout(),
		MaxInFlightTransforms: appConfig.MaxInFlightTransforms,
		AllowedOrigins:        appConfig.AllowedOrigins,
	}, store, rewriter, logger)

	logger.Info("serving", zap.Int("port", port), zap.Bool("memory", serveMemory), zap.Bool("ai", rewriter != nil))
	return srv.Start()
}
