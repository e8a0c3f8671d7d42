package repair

import (
	"time"

	"greycells/internal/artifact"
	"greycells/internal/llm"
	"greycells/internal/sandbox"
)

// ExecutionRecord is one EXECUTE. Retest marks the run that follows a test
// patch within the same iteration.
type ExecutionRecord struct {
	Iteration int                     `json:"iteration"`
	Retest    bool                    `json:"retest,omitempty"`
	Result    sandbox.ExecutionResult `json:"result"`
}

// ArtifactRecord is one revision produced by generation or a patch.
type ArtifactRecord struct {
	Iteration int           `json:"iteration"`
	Role      artifact.Role `json:"role"`
	Revision  int           `json:"revision"`
	Filename  string        `json:"filename"`
}

// VerdictRecord is one arbitration.
type VerdictRecord struct {
	Iteration int     `json:"iteration"`
	Verdict   Verdict `json:"verdict"`
}

// Report is everything a finished run leaves behind.
type Report struct {
	RunID       string            `json:"run_id"`
	Requirement string            `json:"requirement"`
	Story       string            `json:"story,omitempty"`
	Outcome     Outcome           `json:"outcome"`
	State       LoopState         `json:"state"`
	Source      artifact.Artifact `json:"source"`
	Test        artifact.Artifact `json:"test"`
	Executions  []ExecutionRecord `json:"executions"`
	Verdicts    []VerdictRecord   `json:"verdicts"`
	Revisions   []ArtifactRecord  `json:"revisions"`
	Usage       llm.Usage         `json:"usage"`
	Abort       string            `json:"abort,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}

// LastResult returns the most recent execution.
func (r *Report) LastResult() (sandbox.ExecutionResult, bool) {
	if r == nil || len(r.Executions) == 0 {
		return sandbox.ExecutionResult{}, false
	}
	return r.Executions[len(r.Executions)-1].Result, true
}

func (r *Report) Duration() time.Duration {
	if r == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
