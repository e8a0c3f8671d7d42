// Package prompt renders role prompts as titled sections. The output
// section is derived from the extraction schema, so the prompt and the parser
// agree on field names.
package prompt

import (
	"bytes"
	"fmt"
	"strings"

	"greycells/internal/extract"
)

// Input is one titled block of task material, e.g. the user story or the
// current source file.
type Input struct {
	Title string
	Body  string
	// Lang, when set, fences Body as a code block in that language.
	Lang string
}

// Example captures an optional output example.
type Example struct {
	Note   string
	Output string
}

// Spec defines the sections of a structured prompt.
type Spec struct {
	Purpose      string
	Background   string
	Inputs       []Input
	OutputFields extract.Schema
	Constraints  []string
	Rules        []string
	OutputFormat string
	Examples     []Example
}

// System renders the instruction part: everything except the inputs.
func (s Spec) System() (string, error) {
	if strings.TrimSpace(s.Purpose) == "" {
		return "", fmt.Errorf("prompt: purpose is empty")
	}
	var buf bytes.Buffer
	writeSection(&buf, "PURPOSE", s.Purpose)
	writeSection(&buf, "BACKGROUND", s.Background)
	writeSection(&buf, "OUTPUT", formatFields(s.OutputFields))
	writeSection(&buf, "CONSTRAINTS", formatList(s.Constraints))
	writeSection(&buf, "RULES", formatList(s.Rules))
	format := s.OutputFormat
	if format == "" && len(s.OutputFields) > 0 {
		format = SectionFormat(s.OutputFields)
	}
	writeSection(&buf, "OUTPUT_FORMAT", format)
	if len(s.Examples) > 0 {
		writeSection(&buf, "EXAMPLES", formatExamples(s.Examples))
	}
	return strings.TrimSpace(buf.String()) + "\n", nil
}

// User renders the inputs.
func (s Spec) User() string {
	var buf bytes.Buffer
	for _, in := range s.Inputs {
		body := in.Body
		if in.Lang != "" {
			body = Fence(in.Lang, body)
		}
		writeSection(&buf, strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(in.Title), " ", "_")), body)
	}
	return strings.TrimSpace(buf.String()) + "\n"
}

// SectionFormat describes the headed-section answer layout for schema.
func SectionFormat(schema extract.Schema) string {
	var buf strings.Builder
	buf.WriteString("Answer with one Markdown section per field, in this order, and nothing else:\n\n")
	for _, f := range schema {
		fmt.Fprintf(&buf, "## %s\n", f.Name)
		switch f.Kind {
		case extract.KindCode:
			buf.WriteString("```\n<complete file content>\n```\n")
		case extract.KindObject:
			buf.WriteString("```json\n{ ... }\n```\n")
		case extract.KindList:
			buf.WriteString("- item\n- item\n")
		case extract.KindBool:
			buf.WriteString("true | false\n")
		default:
			buf.WriteString("<text>\n")
		}
		buf.WriteString("\n")
	}
	return strings.TrimRight(buf.String(), "\n")
}

// Fence wraps body in a code fence long enough not to collide with fences
// inside body.
func Fence(lang, body string) string {
	ticks := "```"
	for strings.Contains(body, ticks) {
		ticks += "`"
	}
	return ticks + lang + "\n" + strings.TrimRight(body, "\n") + "\n" + ticks
}

func formatFields(fields extract.Schema) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		req := "optional"
		if f.Required {
			req = "required"
		}
		if f.Description != "" {
			fmt.Fprintf(&buf, "- %s (%s, %s): %s\n", name, f.Kind, req, f.Description)
		} else {
			fmt.Fprintf(&buf, "- %s (%s, %s)\n", name, f.Kind, req)
		}
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatList(items []string) string {
	if len(items) == 0 {
		return ""
	}
	var buf strings.Builder
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func formatExamples(examples []Example) string {
	var buf strings.Builder
	for i, ex := range examples {
		fmt.Fprintf(&buf, "Example %d:\n", i+1)
		if strings.TrimSpace(ex.Note) != "" {
			buf.WriteString(ex.Note)
			buf.WriteString("\n")
		}
		if strings.TrimSpace(ex.Output) != "" {
			buf.WriteString("OUTPUT:\n")
			buf.WriteString(ex.Output)
			if !strings.HasSuffix(ex.Output, "\n") {
				buf.WriteString("\n")
			}
		}
		buf.WriteString("\n")
	}
	return strings.TrimRight(buf.String(), "\n")
}

func writeSection(buf *bytes.Buffer, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	buf.WriteString("[")
	buf.WriteString(title)
	buf.WriteString("]\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
}
