package repair

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greycells/internal/artifact"
	"greycells/internal/extract"
	"greycells/internal/llm"
	"greycells/internal/sandbox"
)

var quiet = log.New(io.Discard, "", 0)

type gatewayCall struct {
	source, test artifact.Artifact
}

// scriptGateway returns its results in order.
type scriptGateway struct {
	results []sandbox.ExecutionResult
	calls   []gatewayCall
}

func (g *scriptGateway) RunTests(_ context.Context, source, test artifact.Artifact) sandbox.ExecutionResult {
	g.calls = append(g.calls, gatewayCall{source: source, test: test})
	if len(g.results) == 0 {
		return sandbox.ExecutionResult{FailureKind: sandbox.FailureCrash, ExitCode: -1, Error: "gateway script exhausted"}
	}
	res := g.results[0]
	g.results = g.results[1:]
	return res
}

func passed() sandbox.ExecutionResult {
	return sandbox.ExecutionResult{Passed: true, FailureKind: sandbox.FailureNone}
}

func failed(stderr string) sandbox.ExecutionResult {
	return sandbox.ExecutionResult{FailureKind: sandbox.FailureAssertion, ExitCode: 1, Stderr: stderr}
}

type fakeGenerator struct {
	source, test     artifact.Artifact
	srcErr, testErr  error
	stories          []string
	sourceSeenByTest artifact.Artifact
}

func (g *fakeGenerator) GenerateSource(_ context.Context, story string) (artifact.Artifact, error) {
	g.stories = append(g.stories, story)
	return g.source, g.srcErr
}

func (g *fakeGenerator) GenerateTest(_ context.Context, story string, source artifact.Artifact) (artifact.Artifact, error) {
	g.sourceSeenByTest = source
	return g.test, g.testErr
}

// scriptOracle answers from a per-subject queue and counts each answer as
// one model call of 10 tokens.
type scriptOracle struct {
	verdicts map[artifact.Role][]Verdict
	err      error
	requests []ArbitrationRequest
	phases   []string
}

func (o *scriptOracle) Arbitrate(ctx context.Context, req ArbitrationRequest) (Verdict, error) {
	o.requests = append(o.requests, req)
	o.phases = append(o.phases, llm.PhaseFrom(ctx))
	llm.MeterFrom(ctx).Record(llm.PhaseFrom(ctx), 10, o.err)
	if o.err != nil {
		return Verdict{}, o.err
	}
	q := o.verdicts[req.Subject]
	if len(q) == 0 {
		return Verdict{}, fmt.Errorf("no verdict scripted for %s", req.Subject)
	}
	v := q[0]
	o.verdicts[req.Subject] = q[1:]
	return v, nil
}

func sumGenerator() *fakeGenerator {
	return &fakeGenerator{
		source: artifact.Artifact{Filename: "main.py", Content: "def sum(a, b):\n    return a - b"},
		test:   artifact.Artifact{Filename: "test.py", Content: "class T(unittest.TestCase):\n    def test_sum(self):\n        self.assertEqual(sum(2, 3), 5)"},
	}
}

func newLoop(gen Generator, gw sandbox.Gateway, or Oracle) *Loop {
	return &Loop{Generator: gen, Gateway: gw, Oracle: or, Logger: quiet}
}

func TestRunSucceedsFirstIteration(t *testing.T) {
	gw := &scriptGateway{results: []sandbox.ExecutionResult{passed()}}
	or := &scriptOracle{}
	rep, err := newLoop(sumGenerator(), gw, or).Run(context.Background(), "add two numbers")
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, rep.Outcome)
	assert.Equal(t, 1, rep.State.Iteration)
	assert.Equal(t, 3, rep.State.MaxIterations)
	assert.Empty(t, or.requests)
	assert.Equal(t, 1, rep.Source.Revision)
	assert.Equal(t, 1, rep.Test.Revision)
	assert.NotEmpty(t, rep.RunID)
	assert.Len(t, rep.Executions, 1)
}

func TestRunRepairsSourceAfterRemain(t *testing.T) {
	fixed := "def sum(a, b):\n    return a + b"
	gw := &scriptGateway{results: []sandbox.ExecutionResult{failed("AssertionError: -1 != 5"), passed()}}
	or := &scriptOracle{verdicts: map[artifact.Role][]Verdict{
		SubjectTest:   {{Decision: "REMAIN", Rationale: "the test is right"}},
		SubjectSource: {{Decision: "**fix**", Replacement: fixed}},
	}}
	gen := sumGenerator()
	rep, err := newLoop(gen, gw, or).Run(context.Background(), "add two numbers")
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, rep.Outcome)
	assert.Equal(t, 2, rep.State.Iteration)
	assert.Equal(t, fixed, rep.Source.Content)
	assert.Equal(t, 2, rep.Source.Revision)
	assert.Equal(t, 1, rep.Test.Revision)
	assert.Equal(t, gen.test.Content, rep.Test.Content)

	require.Len(t, gw.calls, 2)
	assert.Equal(t, fixed, gw.calls[1].source.Content)

	require.Len(t, or.requests, 2)
	assert.Equal(t, SubjectTest, or.requests[0].Subject)
	assert.Contains(t, or.requests[0].FailureOutput, "AssertionError: -1 != 5")
	assert.Equal(t, SubjectSource, or.requests[1].Subject)
	assert.Equal(t, []string{"arbitrate.test.1", "arbitrate.source.1"}, or.phases)

	assert.Equal(t, 2, rep.State.CallCount)
	assert.Equal(t, 20, rep.State.TokenCost)
	assert.Equal(t, 2, rep.Usage.Calls)
}

func TestRunTestFixPassesOnRetest(t *testing.T) {
	gw := &scriptGateway{results: []sandbox.ExecutionResult{failed("bad expectation"), passed()}}
	or := &scriptOracle{verdicts: map[artifact.Role][]Verdict{
		SubjectTest: {{Decision: "FIX", Replacement: "fixed test"}},
	}}
	rep, err := newLoop(sumGenerator(), gw, or).Run(context.Background(), "add two numbers")
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, rep.Outcome)
	assert.Equal(t, 1, rep.State.Iteration)
	require.Len(t, or.requests, 1)
	assert.Equal(t, SubjectTest, or.requests[0].Subject)
	assert.Equal(t, "fixed test", rep.Test.Content)
	assert.Equal(t, 2, rep.Test.Revision)
	assert.Equal(t, 1, rep.Source.Revision)

	require.Len(t, rep.Executions, 2)
	assert.False(t, rep.Executions[0].Retest)
	assert.True(t, rep.Executions[1].Retest)
	assert.Equal(t, "fixed test", gw.calls[1].test.Content)
}

func TestRunTestFixFailingRetestGoesToSource(t *testing.T) {
	gw := &scriptGateway{results: []sandbox.ExecutionResult{failed("one"), failed("two"), passed()}}
	or := &scriptOracle{verdicts: map[artifact.Role][]Verdict{
		SubjectTest:   {{Decision: "FIX", Replacement: "better test"}},
		SubjectSource: {{Decision: "FIX", Replacement: "better source"}},
	}}
	rep, err := newLoop(sumGenerator(), gw, or).Run(context.Background(), "add two numbers")
	require.NoError(t, err)

	assert.Equal(t, OutcomeSuccess, rep.Outcome)
	assert.Equal(t, 2, rep.State.Iteration)
	require.Len(t, or.requests, 2)
	// The source oracle sees the retest failure and the patched test.
	assert.Contains(t, or.requests[1].FailureOutput, "two")
	assert.Equal(t, "better test", or.requests[1].Test.Content)
}

func TestRunExhaustsBudget(t *testing.T) {
	gw := &scriptGateway{results: []sandbox.ExecutionResult{failed("1"), failed("2"), failed("3")}}
	or := &scriptOracle{verdicts: map[artifact.Role][]Verdict{
		SubjectTest:   {{Decision: "REMAIN"}, {Decision: "REMAIN"}, {Decision: "REMAIN"}},
		SubjectSource: {{Decision: "VETO"}, {Decision: "veto"}},
	}}
	gen := sumGenerator()
	rep, err := newLoop(gen, gw, or).Run(context.Background(), "add two numbers")
	require.NoError(t, err)

	assert.Equal(t, OutcomeExhausted, rep.Outcome)
	assert.Equal(t, 3, rep.State.Iteration)
	assert.Len(t, gw.calls, 3)
	assert.Equal(t, gen.source.Content, rep.Source.Content)
	assert.Equal(t, gen.test.Content, rep.Test.Content)
	assert.Equal(t, 1, rep.Source.Revision)
	assert.Equal(t, 1, rep.Test.Revision)
	// No source arbitration in the last iteration.
	assert.Len(t, or.requests, 5)
	assert.Equal(t, SubjectTest, or.requests[4].Subject)
}

func TestRunFinalSourceRepair(t *testing.T) {
	gw := &scriptGateway{results: []sandbox.ExecutionResult{failed("1")}}
	or := &scriptOracle{verdicts: map[artifact.Role][]Verdict{
		SubjectTest:   {{Decision: "REMAIN"}},
		SubjectSource: {{Decision: "FIX", Replacement: "last try"}},
	}}
	l := newLoop(sumGenerator(), gw, or)
	l.MaxIterations = 1
	l.FinalSourceRepair = true
	rep, err := l.Run(context.Background(), "add two numbers")
	require.NoError(t, err)

	assert.Equal(t, OutcomeExhausted, rep.Outcome)
	assert.Equal(t, 1, rep.State.Iteration)
	assert.Equal(t, "last try", rep.Source.Content)
	assert.Len(t, gw.calls, 1)
}

func TestRunCustomBudget(t *testing.T) {
	gw := &scriptGateway{results: []sandbox.ExecutionResult{failed("1")}}
	or := &scriptOracle{verdicts: map[artifact.Role][]Verdict{SubjectTest: {{Decision: "REMAIN"}}}}
	l := newLoop(sumGenerator(), gw, or)
	l.MaxIterations = 1
	rep, err := l.Run(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, rep.Outcome)
	assert.Equal(t, 1, rep.State.Iteration)
	assert.Len(t, or.requests, 1)
}

func TestRunAbortsOnUnknownVerdict(t *testing.T) {
	cases := []struct {
		name     string
		verdicts map[artifact.Role][]Verdict
		stage    Stage
	}{
		{"test gibberish", map[artifact.Role][]Verdict{SubjectTest: {{Decision: "MAYBE"}}}, StageArbitrateTest},
		{"test veto", map[artifact.Role][]Verdict{SubjectTest: {{Decision: "VETO"}}}, StageArbitrateTest},
		{"source remain", map[artifact.Role][]Verdict{
			SubjectTest:   {{Decision: "REMAIN"}},
			SubjectSource: {{Decision: "REMAIN"}},
		}, StageArbitrateSource},
		{"fix without content", map[artifact.Role][]Verdict{SubjectTest: {{Decision: "FIX", Replacement: "  "}}}, StageArbitrateTest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gw := &scriptGateway{results: []sandbox.ExecutionResult{failed("x"), failed("y")}}
			rep, err := newLoop(sumGenerator(), gw, &scriptOracle{verdicts: tc.verdicts}).Run(context.Background(), "x")
			var ae *AbortError
			require.ErrorAs(t, err, &ae)
			assert.Equal(t, tc.stage, ae.Stage)
			require.NotNil(t, rep)
			assert.Equal(t, OutcomeAborted, rep.Outcome)
			assert.NotEmpty(t, rep.Abort)
			assert.Equal(t, 1, rep.Source.Revision)
			assert.Equal(t, 1, rep.Test.Revision)
		})
	}
}

func TestRunAbortsOnOracleError(t *testing.T) {
	boom := errors.New("model unavailable")
	gw := &scriptGateway{results: []sandbox.ExecutionResult{failed("x")}}
	or := &scriptOracle{err: boom}
	rep, err := newLoop(sumGenerator(), gw, or).Run(context.Background(), "x")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, OutcomeAborted, rep.Outcome)
	assert.Equal(t, 1, rep.State.CallCount)
	assert.Equal(t, 1, rep.Usage.Errors)
}

func TestRunAbortsOnGenerationParseFailure(t *testing.T) {
	gen := sumGenerator()
	gen.srcErr = &extract.ParseFailure{Role: "implementer", Fields: []string{"content"}}
	gw := &scriptGateway{}
	rep, err := newLoop(gen, gw, &scriptOracle{}).Run(context.Background(), "x")

	var ae *AbortError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, StageGenerateSource, ae.Stage)
	var pf *extract.ParseFailure
	require.ErrorAs(t, err, &pf)
	assert.Equal(t, []string{"content"}, pf.Fields)
	assert.Equal(t, OutcomeAborted, rep.Outcome)
	assert.Equal(t, 0, rep.State.Iteration)
	assert.Empty(t, gw.calls)
}

func TestRunAbortsOnEmptyGeneratedTest(t *testing.T) {
	gen := sumGenerator()
	gen.test.Content = "\n"
	_, err := newLoop(gen, &scriptGateway{}, &scriptOracle{}).Run(context.Background(), "x")
	var ae *AbortError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, StageGenerateTest, ae.Stage)
}

type storyPlanner struct{ story string }

func (p storyPlanner) Plan(context.Context, string) (string, error) { return p.story, nil }

func TestRunPlannerStoryReachesGenerator(t *testing.T) {
	gen := sumGenerator()
	l := newLoop(gen, &scriptGateway{results: []sandbox.ExecutionResult{passed()}}, &scriptOracle{})
	l.Planner = storyPlanner{story: "As a user I want sums"}
	rep, err := l.Run(context.Background(), "add")
	require.NoError(t, err)
	assert.Equal(t, []string{"As a user I want sums"}, gen.stories)
	assert.Equal(t, "As a user I want sums", rep.Story)
	assert.Equal(t, gen.source.Content, gen.sourceSeenByTest.Content)
	assert.Equal(t, artifact.RoleSource, gen.sourceSeenByTest.Role)
}

func TestRunRejectsIncompleteLoop(t *testing.T) {
	_, err := (&Loop{}).Run(context.Background(), "x")
	assert.Error(t, err)
	_, err = newLoop(sumGenerator(), &scriptGateway{}, &scriptOracle{}).Run(context.Background(), " ")
	assert.Error(t, err)
}

func TestRunCancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := newLoop(sumGenerator(), &scriptGateway{}, &scriptOracle{}).Run(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeAborted, rep.Outcome)
}

func TestObserverSeesOrderedEvents(t *testing.T) {
	var stages []string
	obs := ObserverFunc(func(_ context.Context, ev Event) {
		switch ev.Kind {
		case EventEnter:
			stages = append(stages, string(ev.Stage))
		case EventFinished:
			stages = append(stages, "finished:"+string(ev.State.Outcome))
		}
	})
	gw := &scriptGateway{results: []sandbox.ExecutionResult{failed("x"), passed()}}
	or := &scriptOracle{verdicts: map[artifact.Role][]Verdict{
		SubjectTest:   {{Decision: "REMAIN"}},
		SubjectSource: {{Decision: "FIX", Replacement: "y"}},
	}}
	l := newLoop(sumGenerator(), gw, or)
	l.Observer = Observers{obs, nil}
	_, err := l.Run(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"GENERATE_SOURCE", "GENERATE_TEST",
		"EXECUTE", "ARBITRATE_TEST", "ARBITRATE_SOURCE", "PATCH",
		"EXECUTE", "DONE", "finished:SUCCESS",
	}, stages)
}

func TestLogObserver(t *testing.T) {
	var buf strings.Builder
	gw := &scriptGateway{results: []sandbox.ExecutionResult{passed()}}
	l := newLoop(sumGenerator(), gw, &scriptOracle{})
	l.Observer = LogObserver{Logger: log.New(&buf, "", 0)}
	_, err := l.Run(context.Background(), "x")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "execute passed=true")
	assert.Contains(t, buf.String(), "SUCCESS after 1 iteration(s)")
}
