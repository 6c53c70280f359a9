package jsonval

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Decode parses a JSON document into a Value, preserving object member
// order. Numbers keep their source text (json.Number) so round-trips do
// not lose precision. Trailing non-whitespace after the document is an
// error; the sanitizer is responsible for trimming commentary, not the
// parser.
func Decode(content string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("trailing content after JSON document")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeFrom(dec, tok)
}

func decodeFrom(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		return NumberValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		}
		return Value{}, fmt.Errorf("unexpected delimiter %q", t)
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

func decodeObject(dec *json.Decoder) (Value, error) {
	obj := Value{Kind: Object}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Value{}, fmt.Errorf("object key is %T, not string", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		obj.Members = append(obj.Members, Member{Key: key, Value: val})
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return Value{}, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) (Value, error) {
	arr := Value{Kind: Array}
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}
		arr.Elems = append(arr.Elems, val)
	}
	if _, err := dec.Token(); err != nil { // consume ']'
		return Value{}, err
	}
	return arr, nil
}
