package jsonutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

var errNoDocument = errors.New("jsonutil: no JSON document")

// MarshalNoEscape encodes v into JSON without escaping <, >, & into <, etc.
// Generated source code is full of those characters.
func MarshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalNoEscapeIndent is MarshalNoEscape with indentation.
func MarshalNoEscapeIndent(v any, prefix, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalFlex tries to unmarshal JSON bytes into v with best effort:
// 1) Direct unmarshal
// 2) Unwrap a JSON document that was itself encoded as a JSON string
// 3) Parse the document with raw control characters inside strings escaped
func UnmarshalFlex(raw []byte, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return errNoDocument
	}
	err := json.Unmarshal(raw, v)
	if err == nil {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		inner := bytes.TrimSpace([]byte(s))
		if len(inner) > 0 && (inner[0] == '{' || inner[0] == '[') {
			if err2 := json.Unmarshal(inner, v); err2 == nil {
				return nil
			}
		}
	}
	if fixed := EscapeControlChars(raw); !bytes.Equal(fixed, raw) {
		if err2 := json.Unmarshal(fixed, v); err2 == nil {
			return nil
		}
	}
	return err
}

// EscapeControlChars escapes literal newlines, tabs and carriage returns that
// appear inside JSON string literals. Models frequently emit multi-line code
// in a "content" value without escaping it.
func EscapeControlChars(raw []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(raw) + 16)
	inString := false
	escaped := false
	for _, c := range raw {
		if !inString {
			if c == '"' {
				inString = true
			}
			out.WriteByte(c)
			continue
		}
		switch {
		case escaped:
			escaped = false
			out.WriteByte(c)
		case c == '\\':
			escaped = true
			out.WriteByte(c)
		case c == '"':
			inString = false
			out.WriteByte(c)
		case c == '\n':
			out.WriteString(`\n`)
		case c == '\r':
			out.WriteString(`\r`)
		case c == '\t':
			out.WriteString(`\t`)
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes()
}

// DecodeLooseString decodes the body of a JSON string literal (without the
// surrounding quotes). When the body is not valid JSON string content it is
// returned unchanged.
func DecodeLooseString(body string) string {
	var out string
	if err := json.Unmarshal([]byte(`"`+body+`"`), &out); err == nil {
		return out
	}
	fixed := EscapeControlChars([]byte(`"` + body + `"`))
	if err := json.Unmarshal(fixed, &out); err == nil {
		return out
	}
	quoted := EscapeControlChars([]byte(`"` + escapeBareQuotes(body) + `"`))
	if err := json.Unmarshal(quoted, &out); err == nil {
		return out
	}
	return body
}

// escapeBareQuotes escapes double quotes that are not already escaped.
func escapeBareQuotes(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 8)
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}

// FirstObject returns the document itself when it is an object, or its first
// object element when it is an array of objects.
func FirstObject(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case []any:
		for _, item := range x {
			if m, ok := item.(map[string]any); ok {
				return m, true
			}
		}
	}
	return nil, false
}

// BalancedSpan returns the index just past the bracket that closes the one at
// s[start], skipping brackets inside string literals. It returns -1 when the
// bracket is never closed.
func BalancedSpan(s string, start int) int {
	if start < 0 || start >= len(s) {
		return -1
	}
	open := s[start]
	var closeCh byte
	switch open {
	case '{':
		closeCh = '}'
	case '[':
		closeCh = ']'
	default:
		return -1
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

// Stringify renders a decoded JSON value as text: strings as-is, everything
// else as compact JSON.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	}
	b, err := MarshalNoEscape(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
