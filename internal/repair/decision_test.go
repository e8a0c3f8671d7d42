package repair

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"greycells/internal/artifact"
)

func TestParseDecision(t *testing.T) {
	cases := []struct {
		subject artifact.Role
		token   string
		want    Decision
	}{
		{SubjectTest, "FIX", DecisionFix},
		{SubjectTest, " fix ", DecisionFix},
		{SubjectTest, "**Remain**", DecisionRemain},
		{SubjectTest, "`REMAIN`.", DecisionRemain},
		{SubjectTest, "Decision: remain", DecisionRemain},
		{SubjectTest, "VETO", DecisionUnknown},
		{SubjectTest, "", DecisionUnknown},
		{SubjectTest, "fix it", DecisionUnknown},
		{SubjectSource, "veto", DecisionVeto},
		{SubjectSource, "\"FIX\"", DecisionFix},
		{SubjectSource, "REMAIN", DecisionUnknown},
		{SubjectSource, "UNKNOWN", DecisionUnknown},
		{artifact.Role("OTHER"), "FIX", DecisionUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ParseDecision(tc.subject, tc.token), "%s %q", tc.subject, tc.token)
	}
}

func TestVerdictNormalize(t *testing.T) {
	v := Verdict{Decision: "fix", Replacement: "x"}.normalize(SubjectSource)
	assert.Equal(t, DecisionFix, v.Decision)
	assert.Equal(t, SubjectSource, v.Subject)
	assert.Equal(t, "fix", v.Raw)

	v = Verdict{Decision: DecisionFix}.normalize(SubjectTest)
	assert.Equal(t, DecisionUnknown, v.Decision)

	v = Verdict{Raw: "**Veto**", Decision: "ignored"}.normalize(SubjectSource)
	assert.Equal(t, DecisionVeto, v.Decision)
}

func TestTransitions(t *testing.T) {
	allowed := [][2]Stage{
		{StageInit, StagePlan},
		{StageInit, StageGenerateSource},
		{StagePlan, StageGenerateSource},
		{StageGenerateSource, StageGenerateTest},
		{StageGenerateTest, StageExecute},
		{StageExecute, StageArbitrateTest},
		{StageExecute, StageArbitrateSource},
		{StageArbitrateTest, StagePatch},
		{StageArbitrateTest, StageArbitrateSource},
		{StageArbitrateSource, StagePatch},
		{StageArbitrateSource, StageExecute},
		{StagePatch, StageExecute},
		{StageExecute, StageDone},
		{StagePlan, StageDone},
	}
	for _, tr := range allowed {
		assert.True(t, isAllowedTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
	denied := [][2]Stage{
		{StageInit, StageExecute},
		{StageGenerateSource, StageExecute},
		{StageArbitrateTest, StageExecute},
		{StagePatch, StageArbitrateSource},
		{StageDone, StageExecute},
		{StageDone, StageDone},
	}
	for _, tr := range denied {
		assert.False(t, isAllowedTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}
}

func TestOutcomeTerminal(t *testing.T) {
	assert.False(t, OutcomeRunning.Terminal())
	for _, o := range []Outcome{OutcomeSuccess, OutcomeExhausted, OutcomeAborted} {
		assert.True(t, o.Terminal())
	}
}
