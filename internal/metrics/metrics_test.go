package metrics

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greycells/internal/artifact"
	"greycells/internal/repair"
	"greycells/internal/sandbox"
)

func TestObserverTextfile(t *testing.T) {
	o := New(nil)
	ctx := context.Background()
	events := []repair.Event{
		{Kind: repair.EventPatched, Artifact: &repair.ArtifactRecord{Role: artifact.RoleSource, Revision: 1}},
		{Kind: repair.EventExecuted, Result: &repair.ExecutionRecord{Result: sandbox.ExecutionResult{FailureKind: sandbox.FailureAssertion, Duration: 200 * time.Millisecond}}},
		{Kind: repair.EventVerdict, Verdict: &repair.Verdict{Subject: artifact.RoleTest, Decision: repair.DecisionRemain}},
		{Kind: repair.EventVerdict, Verdict: &repair.Verdict{Subject: artifact.RoleSource, Decision: repair.DecisionFix}},
		{Kind: repair.EventPatched, Artifact: &repair.ArtifactRecord{Role: artifact.RoleSource, Revision: 2}},
		{Kind: repair.EventExecuted, Result: &repair.ExecutionRecord{Result: sandbox.ExecutionResult{Passed: true, FailureKind: sandbox.FailureNone}}},
		{Kind: repair.EventEnter, Stage: repair.StageDone},
		{Kind: repair.EventFinished, State: repair.LoopState{Iteration: 2, CallCount: 5, TokenCost: 900, Outcome: repair.OutcomeSuccess}},
	}
	for _, ev := range events {
		o.Observe(ctx, ev)
	}

	path := filepath.Join(t.TempDir(), "greycells.prom")
	require.NoError(t, WriteTextfile(path, o.Registry()))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `greycells_runs_total{outcome="SUCCESS"} 1`)
	assert.Contains(t, text, `greycells_executions_total{failure_kind="ASSERTION"} 1`)
	assert.Contains(t, text, `greycells_executions_total{failure_kind="NONE"} 1`)
	assert.Contains(t, text, `greycells_verdicts_total{decision="REMAIN",subject="TEST"} 1`)
	assert.Contains(t, text, `greycells_verdicts_total{decision="FIX",subject="SOURCE"} 1`)
	assert.Contains(t, text, `greycells_patches_total{role="SOURCE"} 1`)
	assert.Contains(t, text, "greycells_llm_tokens_total 900")
	assert.Contains(t, text, "greycells_run_iterations_sum 2")
	assert.Contains(t, text, "greycells_run_iterations_count 1")
}

func TestWriteTextfileError(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"), New(nil).Registry())
	assert.Error(t, err)
}
