package sandbox

import (
	"context"
	"log"
	"time"

	"greycells/internal/artifact"
)

// LocalRunner runs tests on this machine in a temporary directory.
type LocalRunner struct {
	Profile        Profile
	Timeout        time.Duration
	InstallTimeout time.Duration
	Executor       Executor
	Logger         *log.Logger
}

func (r *LocalRunner) RunTests(ctx context.Context, source, test artifact.Artifact) ExecutionResult {
	job, err := r.Profile.Job(source, test, r.Timeout, r.InstallTimeout)
	if err != nil {
		return crashed("sandbox: prepare job", err)
	}
	res := r.Executor.Run(ctx, job, nil, nil)
	if r.Logger != nil {
		r.Logger.Printf("sandbox: local %s exit=%d kind=%s in %s", r.Profile.Name, res.ExitCode, res.FailureKind, res.Duration.Round(time.Millisecond))
	}
	return res
}
