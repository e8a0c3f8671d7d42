package roles

import (
	"context"
	"fmt"
	"strings"

	"greycells/internal/artifact"
	"greycells/internal/prompt"
	"greycells/internal/repair"
)

func (t *Team) arbiterSpec(req repair.ArbitrationRequest) prompt.Spec {
	lang := langTag(t.opts.Profile.Language)
	subject, other, keep := "source code", "test case", repair.DecisionVeto
	if req.Subject == artifact.RoleTest {
		subject, other, keep = "test case", "source code", repair.DecisionRemain
	}
	story := req.Story
	if story == "" {
		story = req.Requirement
	}
	return prompt.Spec{
		Purpose: fmt.Sprintf("You are an expert %s debugger and code arbiter. The test run failed. "+
			"Decide whether the %s is at fault.", t.opts.Profile.Language, strings.ToUpper(subject)),
		Background: fmt.Sprintf("You judge only the %s in this answer; the %s is judged separately. "+
			"The source code is wrong by default when its logic, arithmetic or output format does not match the user story. "+
			"The test case is wrong only when it calls names the source does not define, violates a constraint of the user story, "+
			"or expects something impossible.", subject, other),
		Inputs: []prompt.Input{
			{Title: "source code", Body: req.Source.Content, Lang: lang},
			{Title: "test case", Body: req.Test.Content, Lang: lang},
			{Title: "user story", Body: story},
			{Title: "execution output", Body: req.FailureOutput},
		},
		Rules: []string{
			fmt.Sprintf("decision is exactly one word: %s if the %s must change, %s if it is correct as it is.", repair.DecisionFix, subject, keep),
			fmt.Sprintf("With %s, file_content is the complete corrected %s. Otherwise leave file_content empty.", repair.DecisionFix, subject),
			"Do not change a test just to make it pass.",
			"Make the smallest change that fixes the failure. Keep entry points, function names and class names identical.",
			"Comments in the fix state what was fixed, never your thinking process.",
		},
	}.With(prompt.PresetSections(), prompt.PresetWholeFile())
}

// Arbitrate asks whether req.Subject caused the failure. Answers in the
// older single-object form, which name a target file instead of giving a
// decision, are mapped onto the subject's decisions.
func (t *Team) Arbitrate(ctx context.Context, req repair.ArbitrationRequest) (repair.Verdict, error) {
	schema := t.schemas.Arbiter
	rec, err := t.askRecord(ctx, "arbiter", t.arbiterSpec(req), schema)
	if err != nil {
		return repair.Verdict{}, err
	}
	v := repair.Verdict{
		Subject:     req.Subject,
		Raw:         rec.Text("decision"),
		Rationale:   rec.Text("reasoning"),
		Replacement: rec.Text("file_content"),
	}
	if strings.TrimSpace(v.Raw) == "" {
		v.Raw = decisionFromTarget(req.Subject, rec.Text("target_file"))
	}
	v.Decision = repair.ParseDecision(req.Subject, v.Raw)
	if v.Decision == repair.DecisionFix && strings.TrimSpace(v.Replacement) == "" {
		v.Decision = repair.DecisionUnknown
	}
	return v, nil
}

func decisionFromTarget(subject artifact.Role, target string) string {
	target = strings.ToUpper(strings.Trim(strings.TrimSpace(target), "*_`\"'"))
	if target == "" {
		return ""
	}
	if artifact.Role(target) == subject {
		return string(repair.DecisionFix)
	}
	if !artifact.Role(target).Valid() {
		return target
	}
	if subject == artifact.RoleTest {
		return string(repair.DecisionRemain)
	}
	return string(repair.DecisionVeto)
}

var (
	_ repair.Planner   = (*Team)(nil)
	_ repair.Generator = (*Team)(nil)
	_ repair.Oracle    = (*Team)(nil)
)
