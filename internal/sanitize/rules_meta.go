package sanitize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Meta-field removal. Some backends append scratch-space properties
// (extra_text, extra_thoughts) that are not part of any schema. The value
// can be an arbitrary nested structure, so the end of the property is
// located with a brace/bracket/quote-balanced scan rather than a regex.

var reMetaField = regexp.MustCompile(`"?(extra_text|extra_thoughts)"?\s*:`)

type metaFieldSanitizer struct {
	cfg Config
}

func (s metaFieldSanitizer) Name() string { return "meta-fields" }

func (s metaFieldSanitizer) Sanitize(content string) Result {
	if json.Valid([]byte(content)) {
		return unchanged(content)
	}
	var diags []string
	for pass := 0; pass < s.cfg.MaxStructurePasses; pass++ {
		next, diag, ok := removeFirstMetaField(content, s.cfg)
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
		Description: fmt.Sprintf("removed %d meta-field(s)", len(diags)),
		Diagnostics: diags,
	}
}

// removeFirstMetaField excises the leftmost meta-field property outside
// string context, together with exactly one adjacent comma.
func removeFirstMetaField(content string, cfg Config) (string, string, bool) {
	for _, loc := range reMetaField.FindAllStringSubmatchIndex(content, -1) {
		if isInStringAt(loc[0], content) {
			continue
		}
		// Property position only: the name must follow an object opener or
		// a separator, never a colon (that is a string value that merely
		// starts with the meta-field name).
		if !precededByMember(loc[0], content, cfg) {
			continue
		}
		name := content[loc[2]:loc[3]]
		valueEnd, ok := scanValueEnd(content, loc[1], cfg)
		if !ok {
			continue
		}
		start, end := loc[0], valueEnd

		// Consume the separating comma: prefer the one before the
		// property, falling back to the one after, so the neighbors
		// reconnect cleanly.
		pre := start
		for pre > 0 && isSpace(content[pre-1]) {
			pre--
		}
		if pre > 0 && content[pre-1] == ',' {
			start = pre - 1
		} else {
			post := end
			for post < len(content) && isSpace(content[post]) {
				post++
			}
			if post < len(content) && content[post] == ',' {
				end = post + 1
			}
		}

		repaired := content[:start] + content[end:]
		return repaired, fmt.Sprintf("removed meta-field %q", name), true
	}
	return content, "", false
}

// scanValueEnd returns the index just past the JSON value beginning at
// start (skipping leading whitespace). The scan is string-aware and
// depth-balanced; it gives up beyond cfg.MaxDepth or when the value never
// terminates.
func scanValueEnd(content string, start int, cfg Config) (int, bool) {
	i := start
	for i < len(content) && isSpace(content[i]) {
		i++
	}
	if i >= len(content) {
		return 0, false
	}
	switch content[i] {
	case '{', '[':
		depth := 0
		inString := false
		escaped := false
		for ; i < len(content); i++ {
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
				if depth > cfg.MaxDepth {
					return 0, false
				}
			case '}', ']':
				depth--
				if depth == 0 {
					return i + 1, true
				}
			}
		}
		return 0, false
	case '"':
		end := stringEnd(i+1, content)
		if end < 0 {
			return 0, false
		}
		return end + 1, true
	default:
		// Scalar: runs to the next delimiter.
		j := i
		for j < len(content) && !strings.ContainsRune(",}]\n", rune(content[j])) {
			j++
		}
		if j == i {
			return 0, false
		}
		return j, true
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
