package roles

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"greycells/internal/extract"
)

// Schemas are the extraction schemas of the roles whose answers are parsed.
// The planner answers in prose and has none.
type Schemas struct {
	Implementer extract.Schema `yaml:"implementer"`
	TestWriter  extract.Schema `yaml:"test_writer"`
	Arbiter     extract.Schema `yaml:"arbiter"`
}

// DefaultSchemas returns the built-in schemas.
func DefaultSchemas() Schemas {
	return Schemas{
		Implementer: extract.Schema{
			{Name: "reasoning", Kind: extract.KindText, Description: "Short design notes."},
			{Name: "filename", Kind: extract.KindText, Required: true, Aliases: []string{"file_name"}, Description: "Name of the program file."},
			{Name: "suffix", Kind: extract.KindText, Aliases: []string{"extension"}},
			{Name: "content", Kind: extract.KindCode, Required: true, Aliases: []string{"code", "file_content", "source"}, Description: "The complete program."},
			{Name: "packages", Kind: extract.KindList, Aliases: []string{"requirements"}, Description: "Third-party packages the program imports."},
		},
		TestWriter: extract.Schema{
			{Name: "reasoning", Kind: extract.KindText, Description: "State variables, side effects and the cases covered."},
			{Name: "filename", Kind: extract.KindText, Required: true, Aliases: []string{"file_name"}, Description: "Name of the test file."},
			{Name: "content", Kind: extract.KindCode, Required: true, Aliases: []string{"code", "file_content", "test"}, Description: "The complete test file."},
		},
		Arbiter: extract.Schema{
			{Name: "reasoning", Kind: extract.KindText, Aliases: []string{"analysis"}, Description: "Why the failure happened and who is at fault."},
			{Name: "decision", Kind: extract.KindText, Aliases: []string{"verdict"}, Description: "One decision word."},
			{Name: "target_file", Kind: extract.KindText, Aliases: []string{"target"}},
			{Name: "file_content", Kind: extract.KindCode, Aliases: []string{"content", "replacement", "fixed_content"}, Description: "With FIX: the complete corrected file. Otherwise empty."},
		},
	}
}

// fields every schema of a role must declare, because the role reads them.
var mandatory = map[string][]string{
	"implementer": {"filename", "content"},
	"test_writer": {"filename", "content"},
	"arbiter":     {"decision", "file_content"},
}

// Validate checks each schema and that the fields the roles read exist.
func (s Schemas) Validate() error {
	for name, schema := range s.byName() {
		if err := schema.Validate(); err != nil {
			return fmt.Errorf("roles: %s schema: %w", name, err)
		}
		for _, field := range mandatory[name] {
			if _, ok := schema.Lookup(field); !ok {
				return fmt.Errorf("roles: %s schema lacks field %q", name, field)
			}
		}
	}
	return nil
}

// ForRole returns the schema of role: implementer, test_writer or arbiter.
func (s Schemas) ForRole(role string) (extract.Schema, bool) {
	schema, ok := s.byName()[role]
	return schema, ok
}

// RoleNames lists the roles that have a schema.
func RoleNames() []string { return []string{"implementer", "test_writer", "arbiter"} }

func (s Schemas) byName() map[string]extract.Schema {
	return map[string]extract.Schema{
		"implementer": s.Implementer,
		"test_writer": s.TestWriter,
		"arbiter":     s.Arbiter,
	}
}

// LoadSchemas reads a YAML document of the form
//
//	implementer:
//	  - {name: content, kind: code, required: true, aliases: [code]}
//	arbiter: [...]
//
// Roles missing from the document keep their default schema.
func LoadSchemas(data []byte) (Schemas, error) {
	var override Schemas
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Schemas{}, fmt.Errorf("roles: schema file: %w", err)
	}
	out := DefaultSchemas()
	if len(override.Implementer) > 0 {
		out.Implementer = override.Implementer
	}
	if len(override.TestWriter) > 0 {
		out.TestWriter = override.TestWriter
	}
	if len(override.Arbiter) > 0 {
		out.Arbiter = override.Arbiter
	}
	if err := out.Validate(); err != nil {
		return Schemas{}, err
	}
	return out, nil
}
