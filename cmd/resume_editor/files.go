package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/jonathan/resume-editor/internal/document"
)

// stdoutPath as --out writes the result to stdout instead of a file.
const stdoutPath = "-"

// readDocument loads a resume document from a JSON file.
func readDocument(path string) (document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}
	doc, err := document.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// writeDocument writes doc to out, to stdout when out is "-", or back to in when out
// is empty.
func writeDocument(cmd *cobra.Command, doc document.Document, in, out string) error {
	data, err := document.Encode(doc)
	if err != nil {
		return err
	}
	if out == stdoutPath {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	if out == "" {
		out = in
	}
	if dir := filepath.Dir(out); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// parseValue reads a --value flag as JSON, so 42, true, null, ["a"] and {"k":"v"} keep
// their types. Anything that is not valid JSON is taken as a plain string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
}
