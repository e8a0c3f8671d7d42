package extract

import (
	"fmt"
	"strings"
)

// Kind is the value kind of a declared field.
type Kind string

const (
	KindText   Kind = "text"
	KindCode   Kind = "code"
	KindObject Kind = "object"
	KindList   Kind = "list"
	KindBool   Kind = "bool"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindCode, KindObject, KindList, KindBool:
		return true
	}
	return false
}

// Field declares one named field of a response.
type Field struct {
	Name        string   `yaml:"name" json:"name"`
	Kind        Kind     `yaml:"kind" json:"kind"`
	Required    bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Aliases     []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// Schema is the ordered list of fields expected in one response.
type Schema []Field

// Validate checks names are present and unique and kinds are known.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("extract: schema is empty")
	}
	seen := make(map[string]string, len(s))
	for _, f := range s {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("extract: field without name")
		}
		if !f.Kind.Valid() {
			return fmt.Errorf("extract: field %q has unknown kind %q", f.Name, f.Kind)
		}
		for _, n := range f.names() {
			key := normalizeKey(n)
			if prev, ok := seen[key]; ok {
				return fmt.Errorf("extract: name %q of field %q collides with field %q", n, f.Name, prev)
			}
			seen[key] = f.Name
		}
	}
	return nil
}

// Lookup returns the index of the field matching name (or one of its
// aliases), ignoring case and the difference between spaces, dashes and
// underscores.
func (s Schema) Lookup(name string) (int, bool) {
	key := normalizeKey(name)
	if key == "" {
		return -1, false
	}
	for i, f := range s {
		for _, n := range f.names() {
			if normalizeKey(n) == key {
				return i, true
			}
		}
	}
	return -1, false
}

// Required returns the names of the required fields.
func (s Schema) Required() []string {
	var out []string
	for _, f := range s {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

func (f Field) names() []string {
	return append([]string{f.Name}, f.Aliases...)
}

func normalizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

// emptyValue is the kind-appropriate default for a missing field.
func emptyValue(k Kind) any {
	switch k {
	case KindObject:
		return map[string]any{}
	case KindList:
		return []string{}
	case KindBool:
		return false
	default:
		return ""
	}
}
