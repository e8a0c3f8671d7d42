package roles

import (
	"context"
	"regexp"
	"strings"

	"greycells/internal/prompt"
)

var reAnalysis = regexp.MustCompile(`(?is)<analysis>.*?</analysis>`)

func (t *Team) plannerSpec(requirement string) prompt.Spec {
	return prompt.Spec{
		Purpose: "You are a technical product manager. Turn the requirement into a precise user story " +
			"that a developer and a QA engineer can work from independently.",
		Background: "The developer writes one " + t.opts.Profile.Language + " file. The QA engineer writes " +
			t.opts.Profile.Framework + " tests against it. Neither sees the other's reasoning, only your story.",
		Inputs: []prompt.Input{{Title: "requirement", Body: requirement}},
		Rules: []string{
			"Before the story, think inside one <analysis>...</analysis> block: interaction pattern, implied risks, derived constraints.",
			"List every technical constraint the requirement states (data structures, names, signatures, types) unchanged. Never rename or retype them.",
			"Turn each derived constraint into an imperative statement (MUST, MUST NOT). No suggestions.",
			"Fill business gaps the requirement leaves open, such as error handling and edge cases.",
			"Describe behaviour in prose or pseudo-code. Do not write code.",
		},
		OutputFormat: "<analysis>...</analysis>\n\n" +
			"## 1. Overview\n" +
			"## 2. Technical constraints\n### 2.1 User-specified\n### 2.2 Derived\n" +
			"## 3. Logic flow\n" +
			"## 4. Acceptance criteria",
	}
}

// Plan returns the user story for requirement. The analysis block the
// planner writes first is not part of the story.
func (t *Team) Plan(ctx context.Context, requirement string) (string, error) {
	text, err := t.ask(ctx, "planner", t.plannerSpec(requirement))
	if err != nil {
		return "", err
	}
	story := strings.TrimSpace(reAnalysis.ReplaceAllString(text, ""))
	if story == "" {
		story = strings.TrimSpace(text)
	}
	return story, nil
}
