package sanitize

import (
	"fmt"
	"strings"
)

// Structure close. The final stage: terminate a dangling string literal
// and append closers for whatever the earlier stages left open. Balanced
// input is untouched, which keeps the pipeline idempotent on valid JSON.

type closeSanitizer struct {
	cfg Config
}

func (s closeSanitizer) Name() string { return "structure-close" }

func (s closeSanitizer) Sanitize(content string) Result {
	stack, inString := openStructures(content)
	if len(stack) == 0 && !inString {
		// A balanced document followed by surplus closers that no earlier
		// stage claimed. Cut at the document boundary.
		if end := balancedEnd(content); end > 0 && end < len(content) {
			tail := strings.TrimSpace(content[end:])
			if tail != "" && structuralOnly(tail) {
				return Result{
					Content:     content[:end],
					Changed:     true,
					Description: "dropped surplus trailing closers",
					Diagnostics: []string{fmt.Sprintf("dropped %d byte(s) of surplus closers", len(tail))},
				}
			}
		}
		return unchanged(content)
	}

	var diags []string
	out := content
	if inString {
		out += `"`
		diags = append(diags, "closed unterminated string")
	}

	// A dangling separator in front of the closers would re-break the
	// document.
	trimmed := strings.TrimRight(out, " \t\n\r")
	if strings.HasSuffix(trimmed, ",") || strings.HasSuffix(trimmed, ":") {
		cut := strings.TrimRight(trimmed[:len(trimmed)-1], " \t\n\r")
		diags = append(diags, fmt.Sprintf("removed dangling %q before closing", trimmed[len(trimmed)-1:]))
		// A bare `"key":` with no value at all cannot be closed into
		// anything meaningful; drop the orphaned key too.
		if strings.HasSuffix(trimmed, ":") {
			if q := strings.LastIndex(cut, `"`); q > 0 {
				if q2 := strings.LastIndex(cut[:q], `"`); q2 >= 0 {
					head := strings.TrimRight(cut[:q2], " \t\n\r")
					if strings.HasSuffix(head, ",") {
						head = strings.TrimRight(head[:len(head)-1], " \t\n\r")
					}
					cut = head
				}
			}
		}
		out = cut
		// Rescan: trimming may have changed what is open.
		stack, _ = openStructures(out)
	}

	if len(stack) > 0 {
		closers := closersFor(stack)
		out += closers
		diags = append(diags, fmt.Sprintf("closed %d open structure(s) with %q", len(stack), closers))
	}

	return Result{
		Content:     out,
		Changed:     true,
		Description: "closed unterminated structures",
		Diagnostics: diags,
	}
}
