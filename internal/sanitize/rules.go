package sanitize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ReplacementRule couples a compiled pattern with a pure replacement
// function. Rules never carry state between applications; the pipeline
// passes each rule the full buffer and the match it found, and the rule
// either produces a replacement plus a diagnostic or declines.
//
// Invariant: when SkipInString is set the rule never fires on an offset
// the scanner classifies as inside a string literal. String-repair rules
// clear the flag and gate on their own corruption-confidence heuristic
// instead.
type ReplacementRule struct {
	Name    string
	Pattern *regexp.Regexp

	// Replace receives the submatch groups (groups[0] is the whole
	// match), the match offset, the full buffer, and the active config.
	// It returns the replacement text and a diagnostic. ok=false declines
	// the match, leaving it untouched; declining is always preferred over
	// guessing.
	Replace func(groups []string, offset int, full string, cfg Config) (text, diagnostic string, ok bool)

	SkipInString bool
}

// applyRules runs an ordered rule list to a fixed point. Each pass applies
// at most one replacement per rule (leftmost eligible match) and then
// rescans from scratch, so balance checks always see the current buffer.
// Bounded by maxPasses regardless of input.
func applyRules(content string, rules []ReplacementRule, cfg Config, maxPasses int) (string, []string, bool) {
	var diags []string
	changed := false
	for pass := 0; pass < maxPasses; pass++ {
		fired := false
		for _, rule := range rules {
			next, diag, ok := applyOnce(content, rule, cfg)
			if !ok {
				continue
			}
			content = next
			diags = append(diags, diag)
			changed = true
			fired = true
			break // rescan from the top with the repaired buffer
		}
		if !fired {
			break
		}
	}
	return content, diags, changed
}

// applyOnce applies the leftmost eligible match of a single rule.
func applyOnce(content string, rule ReplacementRule, cfg Config) (string, string, bool) {
	locs := rule.Pattern.FindAllStringSubmatchIndex(content, -1)
	for _, loc := range locs {
		offset := loc[0]
		if rule.SkipInString && isInStringAt(offset, content) {
			continue
		}
		groups := make([]string, len(loc)/2)
		for g := 0; g < len(loc)/2; g++ {
			if loc[2*g] < 0 {
				continue
			}
			groups[g] = content[loc[2*g]:loc[2*g+1]]
		}
		text, diag, ok := rule.Replace(groups, offset, content, cfg)
		if !ok {
			continue
		}
		return content[:loc[0]] + text + content[loc[1]:], diag, true
	}
	return content, "", false
}

// precededByMember reports whether the nearest non-space byte before
// offset is an object opener or member separator. The backward scan is
// bounded by cfg.PropertyContextWindow; a suspect property name with no
// corroborating structure inside the window is left alone.
func precededByMember(offset int, full string, cfg Config) bool {
	lo := offset - cfg.PropertyContextWindow
	if lo < 0 {
		lo = 0
	}
	for i := offset - 1; i >= lo; i-- {
		c := full[i]
		if isSpace(c) {
			continue
		}
		return c == '{' || c == ','
	}
	return false
}

// knownTruncations maps property-name fragments the decoder loop is known
// to truncate to their full spelling. Anything not listed falls through to
// the generic requote, deferring validity to the schema validator.
var knownTruncations = map[string]string{
	"desc":  "description",
	"descr": "description",
	"purp":  "purpose",
	"param": "parameters",
	"msg":   "message",
	"val":   "value",
}

// corruptionMarkers prefixes identify array entries the model emitted as
// duplication/decode garbage rather than data.
var corruptionMarkers = []string{"###", "$$$", "~~~", "___"}

var (
	// `{word":` or `,word":` means the key lost its opening quote.
	reMissingOpenQuote = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_ ]*)":`)

	// `{word:` or `,word:` means the key lost both quotes.
	reUnquotedKey = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*):`)

	// `"key": word` followed by a delimiter means the value lost its quotes.
	reBareValue = regexp.MustCompile(`:\s*([A-Za-z][A-Za-z0-9 _\-./]*?)\s*([,}\]])`)

	// `: word"` with the closing quote intact means the value lost only
	// its opening quote.
	reMissingValueQuote = regexp.MustCompile(`:(\s*)([A-Za-z][A-Za-z0-9 _\-./]*?)"(\s*[,}\]])`)

	// `"frag_":` is a key truncated mid-name, trailing underscores left
	// by the decode loop.
	reTruncatedKey = regexp.MustCompile(`"([A-Za-z][A-Za-z0-9]*?)(_+)"(\s*):`)

	// A marker-prefixed string entry inside an array.
	reMarkerEntry = regexp.MustCompile(`,\s*"(###|\$\$\$|~~~|___)[^"]*"`)
)

// separatorRules repairs malformed separators and corrupted property
// names. All of these are structural: they must never touch string
// content, so every rule carries SkipInString.
func separatorRules() []ReplacementRule {
	return []ReplacementRule{
		{
			Name:         "missing-open-quote",
			Pattern:      reMissingOpenQuote,
			SkipInString: true,
			Replace: func(g []string, _ int, _ string, _ Config) (string, string, bool) {
				key := strings.TrimSpace(g[2])
				return g[1] + `"` + key + `":`,
					fmt.Sprintf("restored missing opening quote before property %q", key),
					true
			},
		},
		{
			Name:         "missing-value-open-quote",
			Pattern:      reMissingValueQuote,
			SkipInString: true,
			Replace: func(g []string, _ int, _ string, _ Config) (string, string, bool) {
				word := strings.TrimSpace(g[2])
				switch word {
				case "true", "false", "null", "":
					return "", "", false
				}
				return ":" + g[1] + `"` + word + `"` + g[3],
					fmt.Sprintf("restored missing opening quote before value %q", word),
					true
			},
		},
		{
			Name:         "truncated-property",
			Pattern:      reTruncatedKey,
			SkipInString: true,
			Replace: func(g []string, offset int, full string, cfg Config) (string, string, bool) {
				// A trailing underscore is legal JSON; only treat it as a
				// truncation artifact when the document is broken anyway and
				// the match sits in property position.
				if json.Valid([]byte(full)) || !precededByMember(offset, full, cfg) {
					return "", "", false
				}
				frag := g[1]
				if name, ok := knownTruncations[strings.ToLower(frag)]; ok {
					return `"` + name + `"` + g[3] + ":",
						fmt.Sprintf("expanded truncated property %q to %q", frag+g[2], name),
						true
				}
				// Generic fallback: strip the underscores and requote;
				// whether the fragment names a real property is the
				// schema validator's call.
				return `"` + frag + `"` + g[3] + ":",
					fmt.Sprintf("stripped trailing underscores from property %q", frag+g[2]),
					true
			},
		},
		{
			Name:         "unquoted-key",
			Pattern:      reUnquotedKey,
			SkipInString: true,
			Replace: func(g []string, _ int, _ string, _ Config) (string, string, bool) {
				key := g[2]
				switch key {
				case "true", "false", "null":
					return "", "", false
				}
				return g[1] + `"` + key + `"` + g[3] + ":",
					fmt.Sprintf("quoted bare property name %q", key),
					true
			},
		},
		{
			Name:         "bare-value",
			Pattern:      reBareValue,
			SkipInString: true,
			Replace: func(g []string, _ int, _ string, _ Config) (string, string, bool) {
				word := strings.TrimSpace(g[1])
				switch word {
				case "true", "false", "null", "":
					return "", "", false
				}
				return `: "` + word + `"` + g[2],
					fmt.Sprintf("quoted bare value %q", word),
					true
			},
		},
		{
			Name:         "corrupted-array-entry",
			Pattern:      reMarkerEntry,
			SkipInString: true,
			Replace: func(g []string, offset int, full string, cfg Config) (string, string, bool) {
				if json.Valid([]byte(full)) || !isInArrayContext(offset+1, full, cfg) {
					return "", "", false
				}
				return "", fmt.Sprintf("dropped corrupted array entry (marker %q)", g[1]), true
			},
		},
	}
}
