package sanitize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Commentary excision. Models sometimes let prose leak between JSON
// tokens ("Sure, here is the updated object." between two properties).
// Prose is detected lexically, never structurally: a candidate span is
// only excised when it carries at least one natural-language signal, so a
// bare value the separator rules declined to quote passes through
// untouched.

var (
	reFunctionWord  = regexp.MustCompile(`(?i)\b(the|and|is|are|to|of|this|that|here|with|will|sure|now)\b`)
	reFirstPerson   = regexp.MustCompile(`(?i)\b(I will|I'll|I've|I am|Let me|Here is|Here's|Note that)\b`)
	reMarkdownList  = regexp.MustCompile(`^\s*(-\s|\*\s|\d+\.\s)`)
	reFilenameToken = regexp.MustCompile(`\S+\.(go|py|js|ts|json|md|txt|yaml|yml)\b|(^|\s)\S*/\S+`)
)

type commentarySanitizer struct {
	cfg Config
}

func (s commentarySanitizer) Name() string { return "commentary" }

func (s commentarySanitizer) Sanitize(content string) Result {
	if json.Valid([]byte(content)) {
		return unchanged(content)
	}
	var diags []string
	for pass := 0; pass < s.cfg.MaxStructurePasses; pass++ {
		next, diag, ok := exciseFirstCommentary(content)
		if !ok {
			break
		}
		content = next
		diags = append(diags, diag)
	}
	if len(diags) == 0 {
		return unchanged(content)
	}
	return Result{
		Content:     content,
		Changed:     true,
		Description: fmt.Sprintf("excised %d commentary span(s)", len(diags)),
		Diagnostics: diags,
	}
}

// exciseFirstCommentary removes the leftmost prose span found outside
// string context and reconnects the surrounding delimiters.
func exciseFirstCommentary(content string) (string, string, bool) {
	inString := false
	escaped := false
	for i := 0; i < len(content); i++ {
		c := content[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
		case isLetter(c):
			end := commentarySpanEnd(content, i)
			span := content[i:end]
			if !looksLikeCommentary(span) {
				i = end - 1
				continue
			}
			repaired := reconnect(content[:i], content[end:])
			summary := span
			if len(summary) > 60 {
				summary = summary[:60] + "…"
			}
			return repaired, fmt.Sprintf("excised stray commentary %q", strings.TrimSpace(summary)), true
		}
	}
	return content, "", false
}

// commentarySpanEnd extends a prose span from start until the next JSON
// structural delimiter. Punctuation that commonly occurs inside prose
// (commas, colons, periods) stays in the span.
func commentarySpanEnd(content string, start int) int {
	i := start
	for i < len(content) {
		switch content[i] {
		case '{', '}', '[', ']', '"', '\n':
			return i
		}
		i++
	}
	return i
}

// looksLikeCommentary scores the lexical signals. One is enough; JSON
// fragments score zero.
func looksLikeCommentary(span string) bool {
	trimmed := strings.TrimSpace(span)
	if trimmed == "" || trimmed == "true" || trimmed == "false" || trimmed == "null" {
		return false
	}
	switch {
	case reFunctionWord.MatchString(trimmed):
		return true
	case strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "!"):
		return true
	case reFirstPerson.MatchString(trimmed):
		return true
	case reMarkdownList.MatchString(span):
		return true
	case reFilenameToken.MatchString(trimmed):
		return true
	}
	return false
}

// reconnect joins the buffer halves left by an excision without altering
// semantic content: doubled or dangling commas introduced by the cut are
// collapsed.
func reconnect(left, right string) string {
	l := strings.TrimRight(left, " \t")
	r := strings.TrimLeft(right, " \t")
	lc := strings.TrimRight(l, " \t\n")
	rc := strings.TrimLeft(r, " \t\n")
	switch {
	case strings.HasSuffix(lc, ",") && strings.HasPrefix(rc, ","):
		r = strings.TrimLeft(rc[1:], " \t\n")
	case strings.HasSuffix(lc, ",") && (strings.HasPrefix(rc, "}") || strings.HasPrefix(rc, "]")):
		l = strings.TrimRight(lc[:len(lc)-1], " \t\n")
		r = rc
	case (strings.HasSuffix(lc, "{") || strings.HasSuffix(lc, "[")) && strings.HasPrefix(rc, ","):
		r = strings.TrimLeft(rc[1:], " \t\n")
	}
	return l + r
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
