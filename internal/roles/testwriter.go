package roles

import (
	"context"
	"strings"

	"greycells/internal/artifact"
	"greycells/internal/extract"
	"greycells/internal/prompt"
)

func (t *Team) testWriterSpec(story string, source artifact.Artifact) prompt.Spec {
	spec := prompt.Spec{
		Purpose: "You are a QA engineer. Write " + t.opts.Profile.Framework + " tests for the given source code.",
		Background: "The test file is named " + t.opts.Profile.TestFile + ". It runs in a context where everything the source " +
			"file defines is already in scope: call its functions and classes directly and never import the source file.",
		Inputs: []prompt.Input{
			{Title: "user story", Body: story},
			{Title: "source code", Body: source.Content, Lang: langTag(t.opts.Profile.Language)},
		},
		Rules: []string{
			"Never compute expected values in your head. Write the arithmetic expression and let the test evaluate it.",
			"Read the source for state side effects (counters, quotas, cleared collections) and re-initialise state between checks that need it.",
			"Check every argument against the input constraints of the function it is passed to.",
			"Cover the happy path and the edge cases of the story.",
			"Do not add a main entry point.",
		},
	}
	if prelude, err := t.opts.Profile.PreludeFor(source); err == nil && strings.TrimSpace(prelude) != "" {
		spec.Constraints = append(spec.Constraints, "This prelude is inserted above your file; do not repeat it:\n"+prompt.Fence("", prelude))
	}
	return spec.With(prompt.PresetSections(), prompt.PresetNoInvent(), prompt.PresetWholeFile())
}

// GenerateTest writes the first revision of the test for source.
func (t *Team) GenerateTest(ctx context.Context, story string, source artifact.Artifact) (artifact.Artifact, error) {
	schema := t.schemas.TestWriter
	rec, err := t.askRecord(ctx, "test_writer", t.testWriterSpec(story, source), schema)
	if err != nil {
		return artifact.Artifact{}, err
	}
	if err := extract.CheckRequired("test_writer", schema, rec); err != nil {
		return artifact.Artifact{}, err
	}
	name := fileName(rec.Text("filename"), t.opts.Profile.TestFile)
	if name == source.Filename {
		name = t.opts.Profile.TestFile
	}
	return artifact.Artifact{
		Role:     artifact.RoleTest,
		Filename: name,
		Content:  rec.Text("content"),
	}, nil
}
