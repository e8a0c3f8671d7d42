// Package roles implements the model-backed collaborators of a repair run:
// the planner, the implementer, the test writer and the arbiter.
package roles

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"regexp"
	"strings"

	"greycells/internal/extract"
	"greycells/internal/llm"
	"greycells/internal/prompt"
	"greycells/internal/sandbox"
)

// Options configures a Team. Profile supplies the target language, its test
// framework, the fallback file names and the test prelude.
type Options struct {
	Client  llm.Client
	Schemas Schemas
	Profile sandbox.Profile
	Logger  *log.Logger
}

// Team answers for every role with one client.
type Team struct {
	client    llm.Client
	schemas   Schemas
	opts      Options
	extractor extract.Extractor
}

func New(opts Options) (*Team, error) {
	if opts.Client == nil {
		return nil, errors.New("roles: client is nil")
	}
	if opts.Schemas.Implementer == nil && opts.Schemas.TestWriter == nil && opts.Schemas.Arbiter == nil {
		opts.Schemas = DefaultSchemas()
	}
	if err := opts.Schemas.Validate(); err != nil {
		return nil, err
	}
	if opts.Profile.Name == "" {
		opts.Profile = sandbox.Builtin["python"]
	}
	p := &opts.Profile
	if p.Language == "" {
		p.Language = "Python"
	}
	if p.Framework == "" {
		p.Framework = "unittest"
	}
	if p.SourceFile == "" {
		p.SourceFile = "main.py"
	}
	if p.TestFile == "" {
		p.TestFile = "test.py"
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Team{
		client:    opts.Client,
		schemas:   opts.Schemas,
		opts:      opts,
		extractor: extract.Extractor{Logger: opts.Logger},
	}, nil
}

func (t *Team) Schemas() Schemas { return t.schemas }

func (t *Team) ask(ctx context.Context, role string, spec prompt.Spec) (string, error) {
	system, err := spec.System()
	if err != nil {
		return "", fmt.Errorf("roles: %s: %w", role, err)
	}
	out, err := t.client.Generate(ctx, llm.Request{System: system, User: spec.User()})
	if err != nil {
		return "", fmt.Errorf("roles: %s: %w", role, err)
	}
	return out.Text, nil
}

func (t *Team) askRecord(ctx context.Context, role string, spec prompt.Spec, schema extract.Schema) (extract.Record, error) {
	spec.OutputFields = schema
	text, err := t.ask(ctx, role, spec)
	if err != nil {
		return nil, err
	}
	return t.extractor.Extract(role, text, schema), nil
}

var reSafeName = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]*$`)

// fileName keeps the base name of the answered file name when it is a plain
// file name, and falls back otherwise.
func fileName(answer, fallback string) string {
	name := strings.Trim(strings.TrimSpace(answer), "`\"'")
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	if !reSafeName.MatchString(name) || !strings.Contains(name, ".") {
		return fallback
	}
	return name
}

func cleanPackages(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.Trim(strings.TrimSpace(p), "`\"'")
		if p == "" || strings.ContainsAny(p, " \t\n;&|$") || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// langTag is the code fence tag for a language name.
func langTag(language string) string {
	fields := strings.Fields(strings.ToLower(language))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
