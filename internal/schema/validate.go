package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"remend/internal/jsonval"
)

// Issue is one validation finding, addressed by a dotted/indexed path
// into the document.
type Issue struct {
	Path    string
	Message string
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// FormatIssues renders a stable, human-readable summary of a finding
// list.
func FormatIssues(issues []Issue) string {
	parts := make([]string, len(issues))
	for i, is := range issues {
		parts[i] = is.String()
	}
	return strings.Join(parts, "; ")
}

// Validate checks v against the descriptor, applying safe coercions
// (numeric strings where a number is required, numbers where a string is
// required) and returning the possibly-coerced value. A non-empty issue
// list means validation failed; the value is still returned so callers
// can inspect how far it got.
func (d *Descriptor) Validate(v jsonval.Value) (jsonval.Value, []Issue) {
	return validate(v, d, "")
}

func validate(v jsonval.Value, d *Descriptor, path string) (jsonval.Value, []Issue) {
	if d == nil {
		return v, nil
	}
	switch d.Type {
	case TypeObject:
		return validateObject(v, d, path)
	case TypeArray:
		return validateArray(v, d, path)
	case TypeString:
		return validateString(v, d, path)
	case TypeNumber, TypeInteger:
		return validateNumber(v, d, path)
	case TypeBoolean:
		if v.Kind != jsonval.Bool {
			return v, []Issue{{path, fmt.Sprintf("expected boolean, got %s", v.Kind)}}
		}
		return v, nil
	case TypeNull:
		if v.Kind != jsonval.Null {
			return v, []Issue{{path, fmt.Sprintf("expected null, got %s", v.Kind)}}
		}
		return v, nil
	}
	return v, []Issue{{path, fmt.Sprintf("unknown schema type %q", d.Type)}}
}

func validateObject(v jsonval.Value, d *Descriptor, path string) (jsonval.Value, []Issue) {
	if v.Kind != jsonval.Object {
		return v, []Issue{{path, fmt.Sprintf("expected object, got %s", v.Kind)}}
	}
	var issues []Issue
	out := jsonval.Value{Kind: jsonval.Object}
	seen := make(map[string]bool, len(v.Members))
	for _, m := range v.Members {
		seen[m.Key] = true
		prop, ok := d.Properties[m.Key]
		if !ok {
			if d.AdditionalProperties != nil && !*d.AdditionalProperties {
				issues = append(issues, Issue{joinPath(path, m.Key), "unknown property"})
				continue
			}
			out.Members = append(out.Members, m)
			continue
		}
		val, sub := validate(m.Value, prop, joinPath(path, m.Key))
		issues = append(issues, sub...)
		out.Members = append(out.Members, jsonval.Member{Key: m.Key, Value: val})
	}

	missing := make([]string, 0)
	for _, req := range d.Required {
		if !seen[req] {
			missing = append(missing, req)
		}
	}
	sort.Strings(missing)
	for _, key := range missing {
		issues = append(issues, Issue{joinPath(path, key), "required property missing"})
	}
	return out, issues
}

func validateArray(v jsonval.Value, d *Descriptor, path string) (jsonval.Value, []Issue) {
	if v.Kind != jsonval.Array {
		return v, []Issue{{path, fmt.Sprintf("expected array, got %s", v.Kind)}}
	}
	var issues []Issue
	out := jsonval.Value{Kind: jsonval.Array, Elems: make([]jsonval.Value, 0, len(v.Elems))}
	for i, e := range v.Elems {
		val, sub := validate(e, d.Items, fmt.Sprintf("%s[%d]", path, i))
		issues = append(issues, sub...)
		out.Elems = append(out.Elems, val)
	}
	return out, issues
}

func validateString(v jsonval.Value, d *Descriptor, path string) (jsonval.Value, []Issue) {
	switch v.Kind {
	case jsonval.String:
		// fall through to enum check
	case jsonval.Number:
		// Numbers where strings are required are a systematic model
		// mistake; stringify rather than reject.
		v = jsonval.StringValue(v.Num.String())
	default:
		return v, []Issue{{path, fmt.Sprintf("expected string, got %s", v.Kind)}}
	}
	if len(d.Enum) > 0 {
		for _, e := range d.Enum {
			if v.Str == e {
				return v, nil
			}
		}
		return v, []Issue{{path, fmt.Sprintf("value %q not in enum %v", v.Str, d.Enum)}}
	}
	return v, nil
}

func validateNumber(v jsonval.Value, d *Descriptor, path string) (jsonval.Value, []Issue) {
	switch v.Kind {
	case jsonval.Number:
	case jsonval.String:
		// Quoted numbers are coerced when they parse cleanly.
		n := jsonval.Value{Kind: jsonval.Number, Num: jsonNumber(v.Str)}
		if n.Num == "" {
			return v, []Issue{{path, fmt.Sprintf("expected %s, got non-numeric string %q", d.Type, v.Str)}}
		}
		v = n
	default:
		return v, []Issue{{path, fmt.Sprintf("expected %s, got %s", d.Type, v.Kind)}}
	}
	if d.Type == TypeInteger {
		if _, err := v.Num.Int64(); err != nil {
			return v, []Issue{{path, fmt.Sprintf("expected integer, got %s", v.Num)}}
		}
	}
	return v, nil
}

// jsonNumber returns the trimmed string as a json.Number when it parses
// as one, or "" when it does not.
func jsonNumber(s string) json.Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return ""
	}
	return json.Number(s)
}

func joinPath(base, key string) string {
	if base == "" {
		return key
	}
	return base + "." + key
}
