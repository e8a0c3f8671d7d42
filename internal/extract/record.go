package extract

import (
	"fmt"
	"strings"
)

// Record maps every declared field name to its extracted value. Text and
// code fields hold a string, object fields a map[string]any, list fields a
// []string and bool fields a bool. A field that could not be extracted holds
// the empty value of its kind, never nil.
type Record map[string]any

// Text returns a text or code field.
func (r Record) Text(name string) string {
	s, _ := r[name].(string)
	return s
}

// Object returns an object field.
func (r Record) Object(name string) map[string]any {
	if m, ok := r[name].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// List returns a list field.
func (r Record) List(name string) []string {
	if l, ok := r[name].([]string); ok {
		return l
	}
	return []string{}
}

// Bool returns a bool field.
func (r Record) Bool(name string) bool {
	b, _ := r[name].(bool)
	return b
}

// ParseFailure reports required fields that stayed empty after every
// extraction tier.
type ParseFailure struct {
	Role   string
	Fields []string
}

func (e *ParseFailure) Error() string {
	role := e.Role
	if role == "" {
		role = "response"
	}
	return fmt.Sprintf("extract: %s is missing required field(s) %s", role, strings.Join(e.Fields, ", "))
}

// CheckRequired returns a *ParseFailure when any required field of schema is
// empty in rec.
func CheckRequired(role string, schema Schema, rec Record) error {
	var missing []string
	for _, f := range schema {
		if !f.Required {
			continue
		}
		if isEmpty(f.Kind, rec[f.Name]) {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ParseFailure{Role: role, Fields: missing}
}

func isEmpty(k Kind, v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case map[string]any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	case bool:
		// A bool is only "empty" when the caller asks for it as required and it
		// was never set, which the extractor cannot distinguish from false.
		return k == KindBool && !x
	}
	return false
}
