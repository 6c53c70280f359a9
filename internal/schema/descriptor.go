// Package schema validates and normalizes parsed LLM output against a
// structural schema descriptor. It checks structure and types only; what
// the values mean is the caller's business.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Type names the JSON shapes a descriptor can require.
type Type string

const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeNull    Type = "null"
)

// Descriptor is a structural schema: a pragmatic subset of JSON Schema
// covering what LLM function-calling contracts actually use.
type Descriptor struct {
	Type        Type                   `json:"type" yaml:"type"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]*Descriptor `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required    []string               `json:"required,omitempty" yaml:"required,omitempty"`
	Items       *Descriptor            `json:"items,omitempty" yaml:"items,omitempty"`
	Enum        []string               `json:"enum,omitempty" yaml:"enum,omitempty"`

	// AdditionalProperties, when explicitly false, makes unknown object
	// members a validation issue instead of silently allowed baggage.
	AdditionalProperties *bool `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

// Parse reads a descriptor from its JSON serialization.
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse schema descriptor: %w", err)
	}
	if d.Type == "" {
		return nil, fmt.Errorf("schema descriptor missing type")
	}
	return &d, nil
}

// IsRequired reports whether key appears in the Required list.
func (d *Descriptor) IsRequired(key string) bool {
	for _, r := range d.Required {
		if r == key {
			return true
		}
	}
	return false
}

// canonicalProperty resolves a possibly-misspelled key against the
// declared property names, folding case and underscores. Returns the
// declared spelling and whether a distinct match was found.
func (d *Descriptor) canonicalProperty(key string) (string, bool) {
	if d.Properties == nil {
		return "", false
	}
	if _, ok := d.Properties[key]; ok {
		return key, false
	}
	folded := foldName(key)
	for name := range d.Properties {
		if foldName(name) == folded {
			return name, true
		}
	}
	return "", false
}

func foldName(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "_", ""))
}
