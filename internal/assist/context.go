package assist

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/resume-editor/internal/document"
)

// PlainText returns the visible text of a rich-text field value.
func PlainText(markup string) (string, error) {
	if !strings.ContainsAny(markup, "<&") {
		return strings.TrimSpace(markup), nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse field markup: %w", err)
	}
	// keep list items and paragraphs apart
	doc.Find("p, li, br, h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	lines := strings.Split(doc.Text(), "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}

// ContextSummary describes the resume in a few lines so the model can match seniority
// and field: name, title, the first two jobs, the first ten skills and the first
// education entry.
func ContextSummary(doc document.Document) string {
	if doc == nil {
		return ""
	}
	var parts []string

	if personal, ok := doc[document.SectionPersonal].(map[string]any); ok {
		if name := str(personal["fullName"]); name != "" {
			parts = append(parts, "Name: "+name)
		}
		if title := str(personal["title"]); title != "" {
			parts = append(parts, "Title: "+title)
		}
	}

	if jobs := records(doc[document.SectionExperience], 2); len(jobs) > 0 {
		descs := make([]string, 0, len(jobs))
		for _, job := range jobs {
			end := str(job["endDate"])
			if end == "" {
				end = "Present"
			}
			descs = append(descs, fmt.Sprintf("%s at %s (%s - %s)",
				str(job["position"]), str(job["company"]), str(job["startDate"]), end))
		}
		parts = append(parts, "Experience: "+strings.Join(descs, "; "))
	}

	if skills, ok := doc[document.SectionSkills].([]any); ok && len(skills) > 0 {
		names := make([]string, 0, 10)
		for _, s := range skills {
			if len(names) == 10 {
				break
			}
			if name := skillName(s); name != "" {
				names = append(names, name)
			}
		}
		if len(names) > 0 {
			parts = append(parts, "Skills: "+strings.Join(names, ", "))
		}
	}

	if edu := records(doc[document.SectionEducation], 1); len(edu) > 0 {
		e := edu[0]
		parts = append(parts, fmt.Sprintf("Education: %s in %s from %s",
			str(e["degree"]), str(e["field"]), str(e["institution"])))
	}

	return strings.Join(parts, "\n")
}

func records(v any, limit int) []map[string]any {
	seq, _ := v.([]any)
	var out []map[string]any
	for _, item := range seq {
		if len(out) == limit {
			break
		}
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}

// skillName accepts both plain strings and {name: ...} records.
func skillName(v any) string {
	if rec, ok := v.(map[string]any); ok {
		return str(rec["name"])
	}
	return str(v)
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
