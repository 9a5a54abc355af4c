package record

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONParser decodes a single JSON object entry into an ordered field
// tree, leaving scalar values unparsed as byte spans until a consumer
// requests a typed value (spec.md §4.C).
type JSONParser struct {
	MaxDepth int // 0 means unlimited
}

// Parse implements Parser. entry must be exactly one JSON object (the
// block splitter guarantees pretty-printed objects stay whole).
func (p *JSONParser) Parse(entry []byte) ([]Field, error) {
	dec := json.NewDecoder(bytes.NewReader(entry))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, &ParseError{Reason: "unexpected end of input", Cause: err}
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, &ParseError{Reason: "entry is not a JSON object"}
	}

	return p.parseObjectBody(dec, 1)
}

func (p *JSONParser) parseObjectBody(dec *json.Decoder, depth int) ([]Field, error) {
	if p.MaxDepth > 0 && depth > p.MaxDepth {
		return nil, &ParseError{Reason: "nesting depth exceeds limit"}
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &ParseError{Reason: "malformed object key", Cause: err}
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, &ParseError{Reason: "object key is not a string"}
		}
		val, err := p.parseValue(dec, depth+1)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Key: key, Value: val})
	}
	// consume closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, &ParseError{Reason: "unterminated object", Cause: err}
	}
	return fields, nil
}

func (p *JSONParser) parseArrayBody(dec *json.Decoder, depth int) ([]Value, error) {
	if p.MaxDepth > 0 && depth > p.MaxDepth {
		return nil, &ParseError{Reason: "nesting depth exceeds limit"}
	}

	var values []Value
	for dec.More() {
		val, err := p.parseValue(dec, depth+1)
		if err != nil {
			return nil, err
		}
		values = append(values, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, &ParseError{Reason: "unterminated array", Cause: err}
	}
	return values, nil
}

func (p *JSONParser) parseValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, &ParseError{Reason: "malformed value", Cause: err}
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			fields, err := p.parseObjectBody(dec, depth)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindObject, Object: fields}, nil
		case '[':
			arr, err := p.parseArrayBody(dec, depth)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindArray, Array: arr}, nil
		default:
			return Value{}, &ParseError{Reason: fmt.Sprintf("unexpected delimiter %q", t)}
		}
	case string:
		return Value{Kind: KindString, Raw: []byte(t)}, nil
	case json.Number:
		return Value{Kind: KindNumber, Raw: []byte(t.String())}, nil
	case bool:
		if t {
			return Value{Kind: KindBool, Raw: []byte("true")}, nil
		}
		return Value{Kind: KindBool, Raw: []byte("false")}, nil
	case nil:
		return Value{Kind: KindNull, Raw: []byte("null")}, nil
	default:
		return Value{}, &ParseError{Reason: fmt.Sprintf("unsupported token type %T", t)}
	}
}
