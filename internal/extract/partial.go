package extract

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"greycells/internal/util/jsonutil"
)

// partial is what one tier produced: values for the fields it found.
type partial struct {
	values map[string]any
	notes  []Diagnostic
}

func newPartial() partial {
	return partial{values: map[string]any{}}
}

func (p *partial) set(name string, v any) {
	if _, ok := p.values[name]; ok {
		return
	}
	p.values[name] = v
}

func (p *partial) note(tier Tier, field, format string, args ...any) {
	p.notes = append(p.notes, Diagnostic{Tier: tier, Field: field, Message: fmt.Sprintf(format, args...)})
}

func (p partial) empty() bool { return len(p.values) == 0 }

// coerce converts a decoded structured-data value into the representation of
// kind. ok is false when nothing usable remains.
func coerce(kind Kind, v any) (any, bool) {
	switch kind {
	case KindText:
		s := cleanText(jsonutil.Stringify(v))
		return s, s != ""
	case KindCode:
		s := cleanCode(jsonutil.Stringify(v))
		return s, s != ""
	case KindObject:
		switch x := v.(type) {
		case map[string]any:
			return x, len(x) > 0
		case string:
			m, err := parseObject(x)
			if err != nil {
				return nil, false
			}
			return m, len(m) > 0
		}
		return nil, false
	case KindList:
		switch x := v.(type) {
		case []any:
			out := make([]string, 0, len(x))
			for _, item := range x {
				if s := strings.TrimSpace(jsonutil.Stringify(item)); s != "" {
					out = append(out, s)
				}
			}
			return out, len(out) > 0
		case []string:
			return x, len(x) > 0
		case string:
			out := splitList(x)
			return out, len(out) > 0
		}
		return nil, false
	case KindBool:
		switch x := v.(type) {
		case bool:
			return x, true
		case string:
			return parseBoolWord(x)
		}
		return nil, false
	}
	return nil, false
}

// parseObject decodes a structured-data blob, JSON first and YAML second,
// into a map. Arrays yield their first object.
func parseObject(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty document")
	}
	var doc any
	jsonErr := jsonutil.UnmarshalFlex([]byte(text), &doc)
	if jsonErr == nil {
		if m, ok := jsonutil.FirstObject(doc); ok {
			return m, nil
		}
		return nil, fmt.Errorf("document is not an object")
	}
	var ydoc any
	if err := yaml.Unmarshal([]byte(text), &ydoc); err == nil {
		if m, ok := jsonutil.FirstObject(normalizeYAML(ydoc)); ok {
			return m, nil
		}
	}
	return nil, jsonErr
}

// normalizeYAML converts yaml.v3 decoded values into the JSON-shaped values
// the rest of the package expects.
func normalizeYAML(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = normalizeYAML(vv)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[fmt.Sprint(k)] = normalizeYAML(vv)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = normalizeYAML(x[i])
		}
		return out
	case int:
		return float64(x)
	default:
		return v
	}
}
