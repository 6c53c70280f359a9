package sanitize

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payload extraction. The first stage of the pipeline: peel markdown
// fences, preamble prose, and trailing meta-commentary off the buffer so
// the structural stages see only the candidate JSON document. An
// already-extracted valid document passes through byte-identical;
// whitespace-wrapped valid JSON is trimmed once and is then stable.

type payloadSanitizer struct {
	cfg Config
}

func (s payloadSanitizer) Name() string { return "payload-extract" }

func (s payloadSanitizer) Sanitize(content string) Result {
	var diags []string
	out := strings.TrimSpace(content)
	if out != content {
		diags = append(diags, "trimmed surrounding whitespace")
	}

	// The trim runs before the validity gate: json.Valid accepts
	// whitespace-wrapped documents, and the wrapper is still not payload.
	if json.Valid([]byte(out)) {
		if out == content {
			return unchanged(content)
		}
		return Result{
			Content:     out,
			Changed:     true,
			Description: "extracted JSON payload",
			Diagnostics: diags,
		}
	}

	if fenced, ok := stripFence(out); ok {
		out = fenced
		diags = append(diags, "stripped markdown code fence")
	}

	// Preamble: prose before the first structural opener.
	if idx := strings.IndexAny(out, "{["); idx > 0 {
		pre := strings.TrimSpace(out[:idx])
		if pre != "" {
			out = out[idx:]
			diags = append(diags, fmt.Sprintf("dropped %d byte(s) of preamble", len(pre)))
		} else {
			out = out[idx:]
		}
	}

	// Trailing commentary: prose after the balanced end of the document,
	// but only when the document actually closes. A purely structural tail
	// (runaway closers, often preceded by a spurious quote) is not
	// commentary and is left for the repetition and close stages.
	if end := balancedEnd(out); end > 0 && end < len(out) {
		tail := strings.TrimSpace(out[end:])
		if tail != "" && !structuralOnly(tail) {
			diags = append(diags, fmt.Sprintf("dropped %d byte(s) of trailing commentary", len(tail)))
			out = out[:end]
		}
	}

	if out == content {
		return unchanged(content)
	}
	return Result{
		Content:     out,
		Changed:     true,
		Description: "extracted JSON payload",
		Diagnostics: diags,
	}
}

// stripFence removes a ```json / ``` wrapper when one encloses the buffer.
func stripFence(content string) (string, bool) {
	idx := strings.Index(content, "```")
	if idx < 0 {
		return content, false
	}
	start := idx + 3
	// Skip a language tag on the fence line.
	if nl := strings.IndexByte(content[start:], '\n'); nl >= 0 && nl < 20 {
		start += nl + 1
	}
	end := strings.Index(content[start:], "```")
	if end < 0 {
		return strings.TrimSpace(content[start:]), true
	}
	return strings.TrimSpace(content[start : start+end]), true
}

// structuralOnly reports whether the tail consists of JSON delimiters and
// whitespace only.
func structuralOnly(tail string) bool {
	for i := 0; i < len(tail); i++ {
		switch tail[i] {
		case '{', '}', '[', ']', ',', ':', '"', ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}

// balancedEnd returns the index just past the top-level document when the
// buffer opens with a brace/bracket and that structure closes; 0
// otherwise.
func balancedEnd(content string) int {
	if len(content) == 0 || (content[0] != '{' && content[0] != '[') {
		return 0
	}
	depth := 0
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
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}
