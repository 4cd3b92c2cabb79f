package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-editor/internal/assist"
	"github.com/jonathan/resume-editor/internal/editor"
	"github.com/jonathan/resume-editor/internal/llm"
	"github.com/jonathan/resume-editor/internal/observability"
	"github.com/jonathan/resume-editor/internal/path"
	"github.com/jonathan/resume-editor/internal/transform"
)

// newLLMClient is replaced in tests.
var newLLMClient = llm.NewClient

var (
	rewriteIn      string
	rewriteOut     string
	rewritePath    string
	rewriteCommand string
	rewriteTier    string
	rewriteAPIKey  string
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Rewrite one text field of a resume document with AI",
	Long: "Runs an AI writing command (continue, improve, fix, shorter, longer, simplify) on the text at --path " +
		"and writes the document back once the rewrite has been applied.",
	Example: `  resume_editor rewrite --in cv.json --path summary --command shorter
  resume_editor rewrite --in cv.json --path experience.0.description --command improve --tier advanced`,
	RunE: runRewrite,
}

func init() {
	rewriteCmd.Flags().StringVarP(&rewriteIn, "in", "i", "", "Path to resume JSON file (required)")
	rewriteCmd.Flags().StringVarP(&rewriteOut, "out", "o", "", "Output file, - for stdout (default: overwrite --in)")
	rewriteCmd.Flags().StringVarP(&rewritePath, "path", "p", "", "Path of the text field (required)")
	rewriteCmd.Flags().StringVarP(&rewriteCommand, "command", "c", "", "AI command (required)")
	rewriteCmd.Flags().StringVar(&rewriteTier, "tier", "", "Model tier: lite, standard or advanced (default: chosen per command)")
	rewriteCmd.Flags().StringVar(&rewriteAPIKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	markRequired(rewriteCmd, "in", "path", "command")
	rootCmd.AddCommand(rewriteCmd)
}

func runRewrite(cmd *cobra.Command, _ []string) error {
	command, err := assist.ParseCommand(rewriteCommand)
	if err != nil {
		return err
	}
	var tier llm.ModelTier
	if rewriteTier != "" {
		if tier, err = llm.ParseTier(rewriteTier); err != nil {
			return err
		}
	}
	p, err := path.Parse(rewritePath)
	if err != nil {
		return err
	}
	doc, err := readDocument(rewriteIn)
	if err != nil {
		return err
	}

	apiKey := rewriteAPIKey
	if apiKey == "" {
		apiKey = appConfig.APIKey
	}
	if apiKey == "" {
		return fmt.Errorf("API key is required (set GEMINI_API_KEY environment variable or use --api-key flag)")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), appConfig.Timeout())
	defer cancel()

	client, err := newLLMClient(ctx, llm.DefaultConfig(), apiKey)
	if err != nil {
		return err
	}
	defer client.Close() //nolint:errcheck

	rewriter := assist.NewRewriter(client, tier, logger)
	ed := editor.New(doc, editor.WithLogger(logger))
	defer ed.Close()

	h, err := ed.Rewrite(ctx, p, rewriter.Func(command, doc))
	if err != nil {
		return err
	}
	pt, err := h.Wait(ctx)
	if err != nil {
		return fmt.Errorf("rewrite of %s did not finish: %w", p, err)
	}

	var value any
	if pt.Status == transform.StatusApplied {
		value, _ = ed.Get(p)
	}
	observability.NewPrinter(cmd.ErrOrStderr()).PrintTransform(pt, value)

	if pt.Status != transform.StatusApplied {
		if pt.Err != nil {
			return pt.Err
		}
		return fmt.Errorf("rewrite of %s was %s", p, pt.Status)
	}

	logger.Info("field rewritten",
		zap.String("path", p.String()),
		zap.String("command", string(command)),
		zap.String("request_id", pt.RequestID.String()),
	)
	return writeDocument(cmd, ed.Document(), rewriteIn, rewriteOut)
}
