package roles

import (
	"context"

	"greycells/internal/artifact"
	"greycells/internal/extract"
	"greycells/internal/prompt"
)

func (t *Team) implementerSpec(story string) prompt.Spec {
	return prompt.Spec{
		Purpose: "Write the complete, runnable " + t.opts.Profile.Language + " program described by the user story.",
		Background: "The program is a single file named " + t.opts.Profile.SourceFile + ". It is tested by " +
			t.opts.Profile.Framework + " tests that use its top-level functions and classes directly.",
		Inputs: []prompt.Input{{Title: "user story", Body: story}},
		Rules: []string{
			"Prefer the standard library. Use a mature third-party package only when the task needs it and list it under packages.",
			"Write exactly one file with a clear entry point guarded so that importing the file runs nothing.",
			"Respect every constraint of the story, including names and signatures.",
			"Do not implement anything the story marks as a non-goal.",
		},
	}.With(prompt.PresetSections(), prompt.PresetWholeFile())
}

// GenerateSource writes the first revision of the program.
func (t *Team) GenerateSource(ctx context.Context, story string) (artifact.Artifact, error) {
	schema := t.schemas.Implementer
	rec, err := t.askRecord(ctx, "implementer", t.implementerSpec(story), schema)
	if err != nil {
		return artifact.Artifact{}, err
	}
	if err := extract.CheckRequired("implementer", schema, rec); err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.Artifact{
		Role:     artifact.RoleSource,
		Filename: fileName(rec.Text("filename"), t.opts.Profile.SourceFile),
		Content:  rec.Text("content"),
		Packages: cleanPackages(rec.List("packages")),
	}, nil
}
