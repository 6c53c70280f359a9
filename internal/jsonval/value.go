// Package jsonval models parsed JSON as an exhaustive tagged variant with
// ordered object members, so post-parse transforms can be matched
// exhaustively instead of type-asserting through interface{} values.
package jsonval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags the variant.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Member is one key/value pair of an object. Member order is the order of
// appearance in the source text and survives re-serialization.
type Member struct {
	Key   string
	Value Value
}

// Value is a parsed JSON value. Exactly one payload field is meaningful,
// selected by Kind.
type Value struct {
	Kind    Kind
	Boolean bool
	Num     json.Number
	Str     string
	Elems   []Value
	Members []Member
}

// Constructors.

func NullValue() Value                    { return Value{Kind: Null} }
func BoolValue(b bool) Value              { return Value{Kind: Bool, Boolean: b} }
func NumberValue(n json.Number) Value     { return Value{Kind: Number, Num: n} }
func StringValue(s string) Value          { return Value{Kind: String, Str: s} }
func ArrayValue(elems ...Value) Value     { return Value{Kind: Array, Elems: elems} }
func ObjectValue(members ...Member) Value { return Value{Kind: Object, Members: members} }

// IntValue builds a Number from an int.
func IntValue(i int64) Value {
	return Value{Kind: Number, Num: json.Number(strconv.FormatInt(i, 10))}
}

// Get returns the value for key in an object. ok is false for missing
// keys and for non-object receivers.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != Object {
		return Value{}, false
	}
	for _, m := range v.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Set replaces the value for key, appending when absent. No-op on
// non-objects.
func (v *Value) Set(key string, val Value) {
	if v.Kind != Object {
		return
	}
	for i := range v.Members {
		if v.Members[i].Key == key {
			v.Members[i].Value = val
			return
		}
	}
	v.Members = append(v.Members, Member{Key: key, Value: val})
}

// Delete removes key from an object, preserving the order of the rest.
func (v *Value) Delete(key string) bool {
	if v.Kind != Object {
		return false
	}
	for i := range v.Members {
		if v.Members[i].Key == key {
			v.Members = append(v.Members[:i], v.Members[i+1:]...)
			return true
		}
	}
	return false
}

// Rename changes a member's key in place, keeping its position.
func (v *Value) Rename(from, to string) bool {
	if v.Kind != Object {
		return false
	}
	for i := range v.Members {
		if v.Members[i].Key == from {
			v.Members[i].Key = to
			return true
		}
	}
	return false
}

// Keys returns the member keys in order.
func (v Value) Keys() []string {
	if v.Kind != Object {
		return nil
	}
	keys := make([]string, len(v.Members))
	for i, m := range v.Members {
		keys[i] = m.Key
	}
	return keys
}

// Interface converts to the generic encoding/json representation
// (map[string]any loses member order; use MarshalJSON when order
// matters).
func (v Value) Interface() any {
	switch v.Kind {
	case Null:
		return nil
	case Bool:
		return v.Boolean
	case Number:
		if i, err := v.Num.Int64(); err == nil {
			return i
		}
		if f, err := v.Num.Float64(); err == nil {
			return f
		}
		return v.Num.String()
	case String:
		return v.Str
	case Array:
		out := make([]any, len(v.Elems))
		for i, e := range v.Elems {
			out[i] = e.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.Members))
		for _, m := range v.Members {
			out[m.Key] = m.Value.Interface()
		}
		return out
	}
	return nil
}

// MarshalJSON serializes with member order preserved.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) write(buf *bytes.Buffer) error {
	switch v.Kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		if v.Boolean {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		if v.Num == "" {
			buf.WriteString("0")
		} else {
			buf.WriteString(v.Num.String())
		}
	case String:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, e := range v.Elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.write(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range v.Members {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := m.Value.write(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("jsonval: cannot marshal kind %s", v.Kind)
	}
	return nil
}

// Equal compares two values structurally, member order included.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case Null:
		return true
	case Bool:
		return v.Boolean == o.Boolean
	case Number:
		return v.Num == o.Num
	case String:
		return v.Str == o.Str
	case Array:
		if len(v.Elems) != len(o.Elems) {
			return false
		}
		for i := range v.Elems {
			if !v.Elems[i].Equal(o.Elems[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.Members) != len(o.Members) {
			return false
		}
		for i := range v.Members {
			if v.Members[i].Key != o.Members[i].Key || !v.Members[i].Value.Equal(o.Members[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
