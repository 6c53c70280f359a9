package sanitize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// String-repair rules. These are the only rules allowed to rewrite the
// inside of a string literal, and they pay for the privilege with a
// corruption-confidence gate: they fire only when the buffer already
// fails structural parsing AND their own heuristic (repetition count,
// leak signature) clears its threshold. Valid content is never touched.

// maxRepetitionUnit bounds the token length considered by the repetition
// scan. Longer repeats exist but are indistinguishable from legitimate
// content at this layer.
const maxRepetitionUnit = 16

type repetitionSanitizer struct {
	cfg Config
}

func (s repetitionSanitizer) Name() string { return "runaway-repetition" }

func (s repetitionSanitizer) Sanitize(content string) Result {
	if json.Valid([]byte(content)) {
		return unchanged(content)
	}
	var diags []string
	for pass := 0; pass < s.cfg.MaxStringPasses; pass++ {
		next, diag, ok := truncateFirstRun(content, s.cfg)
		if !ok {
			break
		}
		// Each qualifying run strictly shrinks the buffer, so the loop
		// terminates well before the ceiling on sane input.
		content = next
		diags = append(diags, diag)
	}
	if len(diags) == 0 {
		return unchanged(content)
	}
	return Result{
		Content:     content,
		Changed:     true,
		Description: fmt.Sprintf("truncated %d runaway repetition run(s)", len(diags)),
		Diagnostics: diags,
	}
}

// repetitionRun describes one detected run of a repeated unit.
type repetitionRun struct {
	start, end int
	unit       string
	count      int
}

// findRun locates the leftmost run of a unit repeated at least
// cfg.RepetitionThreshold times. The smallest period wins so "ababab" is
// a run of "ab", not of "abab".
func findRun(content string, cfg Config) (repetitionRun, bool) {
	n := len(content)
	for i := 0; i < n; i++ {
		for unitLen := 1; unitLen <= maxRepetitionUnit && i+2*unitLen <= n; unitLen++ {
			unit := content[i : i+unitLen]
			if strings.TrimSpace(unit) == "" {
				continue
			}
			count := 1
			for j := i + unitLen; j+unitLen <= n+unitLen && strings.HasPrefix(content[j:], unit); j += unitLen {
				count++
			}
			if count >= cfg.RepetitionThreshold {
				return repetitionRun{
					start: i,
					end:   i + count*unitLen,
					unit:  unit,
					count: count,
				}, true
			}
		}
	}
	return repetitionRun{}, false
}

// truncateFirstRun truncates the leftmost qualifying run to the kept
// sample plus an ellipsis, closes the string it corrupted, and closes any
// still-open structure when nothing structural follows the run.
func truncateFirstRun(content string, cfg Config) (string, string, bool) {
	run, ok := findRun(content, cfg)
	if !ok {
		return content, "", false
	}

	start := run.start
	inString := isInStringAt(start, content)

	// A runaway closing loop often emits one spurious quote before the
	// repeats, which makes the scanner believe the string already closed.
	// When the character in front of the run is that string's terminator
	// and the buffer still does not parse, the quote belongs to the
	// corruption and is consumed with it.
	if !inString {
		p := start
		for p > 0 && isSpace(content[p-1]) {
			p--
		}
		if p > 0 && content[p-1] == '"' && isInStringAt(p-1, content) {
			start = p - 1
			inString = true
		}
	}

	kept := strings.TrimRight(strings.Repeat(run.unit, cfg.KeptRepetitions), " ")
	var sb strings.Builder
	sb.WriteString(content[:start])
	sb.WriteString(kept)
	sb.WriteString("...")

	rest := content[run.end:]
	if inString {
		if t := strings.TrimLeft(rest, " \t"); strings.HasPrefix(t, `"`) {
			// The string's original terminator survived the run; reuse it
			// instead of double-closing.
			rest = t
		} else {
			sb.WriteString(`"`)
		}
	}
	if hasTrailingStructure(rest) {
		sb.WriteString(rest)
	} else {
		// No structure survived after the run. A short remainder is decode
		// garbage and is dropped with it; a longer unexplained tail is more
		// content than a truncation rule may delete, so the rule declines
		// and leaves the buffer to later stages.
		if len(strings.TrimSpace(rest)) > cfg.TruncationSafetyBuffer {
			return content, "", false
		}
		stack, _ := openStructures(sb.String())
		sb.WriteString(closersFor(stack))
	}

	diag := fmt.Sprintf("truncated runaway repetition of %q (%d repeats, kept %d)",
		run.unit, run.count, cfg.KeptRepetitions)
	return sb.String(), diag, true
}

// hasTrailingStructure reports whether anything after a truncated run
// still looks like JSON structure worth preserving.
func hasTrailingStructure(rest string) bool {
	trimmed := strings.TrimSpace(rest)
	if trimmed == "" {
		return false
	}
	switch trimmed[0] {
	case '{', '[', '"', ',':
		return true
	}
	return false
}

// Embedded-JSON leak: the model writes the next property inside the
// current string value, either with escaped quotes
// (`"summary": "done\", \"status\": ..."`) or after a literal newline.

var (
	reEscapedLeak = regexp.MustCompile(`\\",\s*\\"[A-Za-z_][A-Za-z0-9_]*\\?"?:`)
	reNewlineLeak = regexp.MustCompile(`\n\s*"[A-Za-z_][A-Za-z0-9_]*"\s*:`)
)

type embeddedJSONSanitizer struct {
	cfg Config
}

func (s embeddedJSONSanitizer) Name() string { return "embedded-json" }

func (s embeddedJSONSanitizer) Sanitize(content string) Result {
	if json.Valid([]byte(content)) {
		return unchanged(content)
	}
	var diags []string
	for pass := 0; pass < s.cfg.MaxStringPasses; pass++ {
		next, diag, ok := truncateFirstLeak(content)
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
		Description: fmt.Sprintf("repaired %d embedded-JSON leak(s)", len(diags)),
		Diagnostics: diags,
	}
}

func truncateFirstLeak(content string) (string, string, bool) {
	// Escaped form: drop everything from the signature to the string's
	// real terminator; the property that leaked in is decode noise, the
	// real copy follows the string.
	for _, loc := range reEscapedLeak.FindAllStringIndex(content, -1) {
		if !isInStringAt(loc[0], content) {
			continue
		}
		end := stringEnd(loc[0], content)
		if end < 0 {
			continue
		}
		return content[:loc[0]] + content[end:],
			fmt.Sprintf("truncated string at embedded-JSON signature %q", snippet(content[loc[0]:loc[1]])),
			true
	}
	// Literal-newline form: the string was never closed and the next
	// property leaked in raw. Close the string at the newline and promote
	// the remainder back out.
	for _, loc := range reNewlineLeak.FindAllStringIndex(content, -1) {
		if !isInStringAt(loc[0], content) {
			continue
		}
		keyStart := strings.IndexByte(content[loc[0]:loc[1]], '"') + loc[0]
		return content[:loc[0]] + `", ` + content[keyStart:],
			fmt.Sprintf("closed unterminated string before leaked property %q", snippet(content[keyStart:loc[1]])),
			true
	}
	return content, "", false
}

func snippet(s string) string {
	if len(s) > 40 {
		return s[:40] + "…"
	}
	return s
}
