package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/observability"
	"github.com/jonathan/resume-editor/internal/schemas"
)

var (
	inspectIn      string
	inspectSection string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a resume document against the resume schema",
	RunE:  runValidate,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a summary of a resume document or one of its sections",
	RunE:  runShow,
}

func init() {
	for _, cmd := range []*cobra.Command{validateCmd, showCmd} {
		cmd.Flags().StringVarP(&inspectIn, "in", "i", "", "Path to resume JSON file (required)")
		markRequired(cmd, "in")
		rootCmd.AddCommand(cmd)
	}
	showCmd.Flags().StringVarP(&inspectSection, "section", "s", "", "List the entries of one section")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	doc, err := readDocument(inspectIn)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	err = schemas.ValidateDocument(doc)
	var verr *schemas.ValidationError
	switch {
	case err == nil:
		printer.PrintValidation(nil)
		return nil
	case errors.As(err, &verr):
		printer.PrintValidation(verr)
		return fmt.Errorf("%s: %d schema violation(s): %w", inspectIn, len(verr.Errors), schemas.ErrInvalidDocument)
	default:
		return err
	}
}

func runShow(cmd *cobra.Command, _ []string) error {
	doc, err := readDocument(inspectIn)
	if err != nil {
		return err
	}

	printer := observability.NewPrinter(cmd.OutOrStdout())
	if inspectSection == "" {
		printer.PrintResume(doc)
		return nil
	}
	if !document.IsSection(inspectSection) {
		return fmt.Errorf("unknown section %q", inspectSection)
	}
	if _, ok := doc[inspectSection].([]any); !ok {
		return fmt.Errorf("section %q is not a list", inspectSection)
	}
	printer.PrintSection(doc, inspectSection)
	return nil
}
