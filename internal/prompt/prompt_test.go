package prompt

import (
	"strings"
	"testing"

	"greycells/internal/extract"
)

func TestSpecRendersSections(t *testing.T) {
	spec := Spec{
		Purpose:    "Write the program.",
		Background: "Single file.",
		Inputs: []Input{
			{Title: "user story", Body: "Add two numbers."},
			{Title: "source code", Body: "def add(a, b):\n    return a - b\n", Lang: "python"},
		},
		OutputFields: extract.Schema{
			{Name: "filename", Kind: extract.KindText, Required: true, Description: "File name."},
			{Name: "content", Kind: extract.KindCode, Required: true},
		},
		Rules:    []string{"Be complete.", "  "},
		Examples: []Example{{Note: "minimal", Output: "## filename\nmain.py"}},
	}

	sys, err := spec.System()
	if err != nil {
		t.Fatalf("System error: %v", err)
	}
	for _, sec := range []string{"[PURPOSE]", "[BACKGROUND]", "[OUTPUT]", "[RULES]", "[OUTPUT_FORMAT]", "[EXAMPLES]"} {
		if !strings.Contains(sys, sec) {
			t.Fatalf("expected section %s in system prompt:\n%s", sec, sys)
		}
	}
	if strings.Contains(sys, "[CONSTRAINTS]") {
		t.Fatalf("empty sections must be omitted")
	}
	if !strings.Contains(sys, "- filename (text, required): File name.") {
		t.Fatalf("field line missing:\n%s", sys)
	}
	if !strings.Contains(sys, "## content\n```") {
		t.Fatalf("derived output format missing code fence:\n%s", sys)
	}

	user := spec.User()
	if !strings.Contains(user, "[USER_STORY]\nAdd two numbers.") {
		t.Fatalf("user story missing:\n%s", user)
	}
	if !strings.Contains(user, "[SOURCE_CODE]\n```python\ndef add(a, b):") {
		t.Fatalf("fenced source missing:\n%s", user)
	}
}

func TestSpecRequiresPurpose(t *testing.T) {
	if _, err := (Spec{}).System(); err == nil {
		t.Fatalf("expected error for empty purpose")
	}
}

func TestFenceOutgrowsInnerFences(t *testing.T) {
	got := Fence("md", "```go\nx\n```")
	if !strings.HasPrefix(got, "````md\n") || !strings.HasSuffix(got, "\n````") {
		t.Fatalf("unexpected fence: %q", got)
	}
}

func TestSpecWithPresets(t *testing.T) {
	spec := Spec{Purpose: "p", Constraints: []string{"own"}, Rules: []string{"mine"}}
	got := spec.With(PresetNoInvent(), PresetWholeFile())
	if len(got.Constraints) != 2 || got.Constraints[1] != "own" {
		t.Fatalf("constraints: %v", got.Constraints)
	}
	if len(got.Rules) != 2 || got.Rules[1] != "mine" {
		t.Fatalf("rules: %v", got.Rules)
	}
	if len(spec.Constraints) != 1 {
		t.Fatalf("original spec modified: %v", spec.Constraints)
	}
	if same := spec.With(); len(same.Rules) != 1 {
		t.Fatalf("no presets changed rules: %v", same.Rules)
	}
}
