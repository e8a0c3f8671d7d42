// Package sandbox runs a generated program against its generated test in an
// isolated place and reports the verdict as data, never as an error.
package sandbox

import (
	"context"
	"time"

	"greycells/internal/artifact"
)

// FailureKind classifies a failed execution.
type FailureKind string

const (
	FailureNone      FailureKind = "NONE"
	FailureAssertion FailureKind = "ASSERTION"
	FailureTimeout   FailureKind = "TIMEOUT"
	FailureCrash     FailureKind = "CRASH"
)

func (k FailureKind) Valid() bool {
	switch k {
	case FailureNone, FailureAssertion, FailureTimeout, FailureCrash:
		return true
	}
	return false
}

// ExecutionResult is produced once per execution attempt and never mutated.
// Error describes an infrastructure fault (CRASH) or the deadline (TIMEOUT).
type ExecutionResult struct {
	Passed      bool          `json:"passed"`
	Stdout      string        `json:"stdout"`
	Stderr      string        `json:"stderr"`
	FailureKind FailureKind   `json:"failure_kind"`
	ExitCode    int           `json:"exit_code"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Gateway runs the test against the source. It enforces its own timeout and
// reports timeouts and faults through FailureKind.
type Gateway interface {
	RunTests(ctx context.Context, source, test artifact.Artifact) ExecutionResult
}

func crashed(format string, err error) ExecutionResult {
	msg := format
	if err != nil {
		msg = format + ": " + err.Error()
	}
	return ExecutionResult{FailureKind: FailureCrash, ExitCode: -1, Error: msg}
}
