// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/resume-editor/internal/assist"
	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/schemas"
	"github.com/jonathan/resume-editor/internal/transform"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintResume outputs the personal details, summary and section sizes of doc.
func (p *Printer) PrintResume(doc document.Document) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	if personal, ok := doc[document.SectionPersonal].(map[string]any); ok {
		for _, field := range []string{"fullName", "title", "email", "location"} {
			if v, _ := personal[field].(string); v != "" {
				sb.WriteString(fmt.Sprintf("%-10s%s\n", field+":", v))
			}
		}
	}
	if summary, _ := doc[document.SectionSummary].(string); summary != "" {
		if plain, err := assist.PlainText(summary); err == nil {
			summary = plain
		}
		sb.WriteString(fmt.Sprintf("\nSummary:  %s\n", strings.ReplaceAll(summary, "\n", " ")))
	}

	sb.WriteString("\n")
	for _, section := range document.Sections {
		if seq, ok := doc[section].([]any); ok {
			sb.WriteString(fmt.Sprintf("  • %-16s %d\n", section, len(seq)))
		}
	}

	p.printBox("RESUME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSection outputs the first entries of one sequence section.
func (p *Printer) PrintSection(doc document.Document, section string) {
	seq, ok := doc[section].([]any)
	if !ok {
		return
	}

	var sb strings.Builder
	if len(seq) == 0 {
		sb.WriteString("(empty)")
	}
	count := min(len(seq), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i, entryLabel(seq[i])))
	}
	if len(seq) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(seq)-maxItemsToShow))
	}

	p.printBox(strings.ToUpper(section), strings.TrimSuffix(sb.String(), "\n"))
}

// entryLabel picks the most descriptive text of a section entry.
func entryLabel(entry any) string {
	rec, ok := entry.(map[string]any)
	if !ok {
		return fmt.Sprint(entry)
	}
	var parts []string
	for _, key := range []string{"position", "degree", "name", "company", "institution", "issuer", "proficiency"} {
		if v, _ := rec[key].(string); v != "" {
			parts = append(parts, v)
		}
		if len(parts) == 2 {
			break
		}
	}
	if len(parts) == 0 {
		return "(untitled)"
	}
	return strings.Join(parts, " · ")
}

// PrintTransform outputs the outcome of one rewrite request.
func (p *Printer) PrintTransform(pt transform.PendingTransform, value any) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Field:    %s\n", pt.FieldPath))
	sb.WriteString(fmt.Sprintf("Request:  %s\n", pt.RequestID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", pt.Status))
	if !pt.SettledAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Took:     %s\n", pt.SettledAt.Sub(pt.RequestedAt).Round(1e6)))
	}
	if pt.Err != nil {
		sb.WriteString(fmt.Sprintf("Error:    %v\n", pt.Err))
	}
	if s, ok := value.(string); ok && pt.Status == transform.StatusApplied {
		sb.WriteString("\n")
		sb.WriteString(s)
	}
	p.printBox("REWRITE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintValidation outputs schema violations, or a success line when err is nil.
func (p *Printer) PrintValidation(err *schemas.ValidationError) {
	if err == nil || len(err.Errors) == 0 {
		p.printBox("VALIDATION", "✓ document matches the resume schema")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d problem(s):\n\n", len(err.Errors)))
	for _, fe := range err.Errors {
		sb.WriteString(fmt.Sprintf("✗ %s\n    %s\n", fe.Field, fe.Message))
	}
	p.printBox("VALIDATION", strings.TrimSuffix(sb.String(), "\n"))
}
