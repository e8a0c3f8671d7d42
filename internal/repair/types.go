// Package repair is the state machine that generates a program and its test,
// executes them and arbitrates failures between the two until they agree or
// the iteration budget runs out.
package repair

import (
	"context"

	"greycells/internal/artifact"
	"greycells/internal/sandbox"
)

// DefaultMaxIterations is the budget used when none is configured.
const DefaultMaxIterations = 3

// Outcome is the state of a run as a whole.
type Outcome string

const (
	OutcomeRunning   Outcome = "RUNNING"
	OutcomeSuccess   Outcome = "SUCCESS"
	OutcomeExhausted Outcome = "EXHAUSTED"
	OutcomeAborted   Outcome = "ABORTED"
)

func (o Outcome) Terminal() bool {
	return o == OutcomeSuccess || o == OutcomeExhausted || o == OutcomeAborted
}

// Stage is a state of the machine.
type Stage string

const (
	StageInit            Stage = "INIT"
	StagePlan            Stage = "PLAN"
	StageGenerateSource  Stage = "GENERATE_SOURCE"
	StageGenerateTest    Stage = "GENERATE_TEST"
	StageExecute         Stage = "EXECUTE"
	StageArbitrateTest   Stage = "ARBITRATE_TEST"
	StageArbitrateSource Stage = "ARBITRATE_SOURCE"
	StagePatch           Stage = "PATCH"
	StageDone            Stage = "DONE"
)

// Subjects of arbitration.
const (
	SubjectTest   = artifact.RoleTest
	SubjectSource = artifact.RoleSource
)

// LoopState is owned by one run and discarded when it ends.
type LoopState struct {
	Iteration     int     `json:"iteration"`
	MaxIterations int     `json:"max_iterations"`
	CallCount     int     `json:"call_count"`
	TokenCost     int     `json:"token_cost"`
	Outcome       Outcome `json:"outcome"`
}

// Planner turns a requirement into the user story the other roles work from.
type Planner interface {
	Plan(ctx context.Context, requirement string) (string, error)
}

// Generator produces the first revision of both artifacts. A response whose
// required fields cannot be extracted is an error wrapping
// *extract.ParseFailure.
type Generator interface {
	GenerateSource(ctx context.Context, story string) (artifact.Artifact, error)
	GenerateTest(ctx context.Context, story string, source artifact.Artifact) (artifact.Artifact, error)
}

// ArbitrationRequest is what the oracle sees for one subject.
type ArbitrationRequest struct {
	Subject       artifact.Role
	Iteration     int
	Requirement   string
	Story         string
	Source        artifact.Artifact
	Test          artifact.Artifact
	Result        sandbox.ExecutionResult
	FailureOutput string
}

// Oracle decides whether the subject is at fault. The returned decision is
// re-normalized by the loop; tokens outside the subject's allowed set become
// UNKNOWN.
type Oracle interface {
	Arbitrate(ctx context.Context, req ArbitrationRequest) (Verdict, error)
}
