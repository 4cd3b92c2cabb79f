package llm

import "strings"

// CleanJSONBlock strips a markdown code fence and any chatter around the first JSON
// object or array in text.
func CleanJSONBlock(text string) string {
	text = stripFence(strings.TrimSpace(text))

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return text
	}
	if end := matchingClose(text, start); end > start {
		return text[start : end+1]
	}
	return text[start:]
}

// CleanText tidies a free-text reply: code fences, wrapping quotes and a leading
// "Here is ..." line are removed.
func CleanText(text string) string {
	text = stripFence(strings.TrimSpace(text))

	if first, rest, ok := strings.Cut(text, "\n"); ok {
		lower := strings.ToLower(strings.TrimSpace(first))
		if strings.HasPrefix(lower, "here is") || strings.HasPrefix(lower, "here's") {
			text = strings.TrimSpace(rest)
		}
	}

	if len(text) >= 2 {
		for _, q := range []string{`"`, "'", "“"} {
			closing := q
			if q == "“" {
				closing = "”"
			}
			if strings.HasPrefix(text, q) && strings.HasSuffix(text, closing) {
				text = strings.TrimSpace(text[len(q) : len(text)-len(closing)])
				break
			}
		}
	}
	return text
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// drop a language tag on the opening line
	if idx := strings.Index(text, "\n"); idx >= 0 {
		if tag := text[:idx]; len(tag) < 20 && !strings.ContainsAny(tag, " {[") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// matchingClose returns the index of the bracket closing text[start], skipping
// brackets inside JSON strings, or -1.
func matchingClose(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		switch {
		case escaped:
			escaped = false
		case inString && ch == '\\':
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{' || ch == '[':
			depth++
		case ch == '}' || ch == ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
