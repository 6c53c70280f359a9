package schema

import (
	"fmt"

	"remend/internal/jsonval"
)

// Post-parse normalization: schema-aware fixups applied to a structure
// that already parsed, before validation. Each transform targets a
// systematic model mistake and is independently toggleable; execution
// order is fixed (envelope unwrap, then null-coercion, then typo-fix,
// then sequence-coercion) because the later transforms assume the earlier
// ones already ran.

// NormalizeOptions toggles the individual transforms. The zero value
// disables everything; use DefaultNormalizeOptions for the standard set.
type NormalizeOptions struct {
	UnwrapEnvelope bool
	CoerceNull     bool
	FixTypos       bool
	WrapScalars    bool
}

// DefaultNormalizeOptions enables every transform.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		UnwrapEnvelope: true,
		CoerceNull:     true,
		FixTypos:       true,
		WrapScalars:    true,
	}
}

// Normalize applies the enabled transforms and returns the adjusted value
// plus a diagnostic per change.
func Normalize(v jsonval.Value, d *Descriptor, opts NormalizeOptions) (jsonval.Value, []string) {
	if d == nil {
		return v, nil
	}
	var diags []string
	if opts.UnwrapEnvelope {
		v, diags = unwrapEnvelope(v, d, diags)
	}
	v, diags = normalizeValue(v, d, opts, diags)
	return v, diags
}

// unwrapEnvelope detects the instance-vs-schema confusion: the model
// serializes `{"type": "object", "properties": {...}}` with the actual
// values stored under "properties" instead of emitting the instance
// directly.
func unwrapEnvelope(v jsonval.Value, d *Descriptor, diags []string) (jsonval.Value, []string) {
	if d.Type != TypeObject || v.Kind != jsonval.Object {
		return v, diags
	}
	props, ok := v.Get("properties")
	if !ok || props.Kind != jsonval.Object {
		return v, diags
	}
	for _, m := range v.Members {
		switch m.Key {
		case "type", "properties", "required":
		default:
			return v, diags // extra keys: not an envelope
		}
	}
	return props, append(diags, "unwrapped schema-shaped envelope around instance")
}

func normalizeValue(v jsonval.Value, d *Descriptor, opts NormalizeOptions, diags []string) (jsonval.Value, []string) {
	if d == nil {
		return v, diags
	}

	// Sequence-coercion runs on the way in so the element descriptor can
	// be applied to the wrapped scalar below.
	if opts.WrapScalars && d.Type == TypeArray && v.Kind != jsonval.Array && v.Kind != jsonval.Null {
		diags = append(diags, fmt.Sprintf("wrapped lone %s into single-element array", v.Kind))
		v = jsonval.ArrayValue(v)
	}

	switch v.Kind {
	case jsonval.Object:
		if d.Type != TypeObject {
			return v, diags
		}
		if opts.CoerceNull {
			// Explicit null for an optional property means "absent".
			kept := v.Members[:0:0]
			for _, m := range v.Members {
				if m.Value.Kind == jsonval.Null && !d.IsRequired(m.Key) {
					diags = append(diags, fmt.Sprintf("dropped explicit null for optional property %q", m.Key))
					continue
				}
				kept = append(kept, m)
			}
			v.Members = kept
		}
		if opts.FixTypos {
			for i := range v.Members {
				if canonical, renamed := d.canonicalProperty(v.Members[i].Key); renamed {
					diags = append(diags, fmt.Sprintf("renamed property %q to %q", v.Members[i].Key, canonical))
					v.Members[i].Key = canonical
				}
			}
		}
		for i := range v.Members {
			prop := d.Properties[v.Members[i].Key]
			if prop == nil {
				continue
			}
			v.Members[i].Value, diags = normalizeValue(v.Members[i].Value, prop, opts, diags)
		}
		return v, diags
	case jsonval.Array:
		if d.Type != TypeArray || d.Items == nil {
			return v, diags
		}
		for i := range v.Elems {
			v.Elems[i], diags = normalizeValue(v.Elems[i], d.Items, opts, diags)
		}
		return v, diags
	default:
		return v, diags
	}
}
