package repair

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"greycells/internal/artifact"
	"greycells/internal/llm"
	"greycells/internal/sandbox"
)

// Phase labels attached to the context of each collaborator call.
const (
	PhasePlan   = "plan"
	PhaseSource = "generate.source"
	PhaseTest   = "generate.test"
)

// ArbitrationPhase labels the arbitration of subject in iteration n, for
// example "arbitrate.test.2".
func ArbitrationPhase(subject artifact.Role, n int) string {
	return fmt.Sprintf("arbitrate.%s.%d", strings.ToLower(string(subject)), n)
}

// Loop drives one requirement from planning to a terminal outcome. A Loop
// holds configuration only and may run many requirements, concurrently.
type Loop struct {
	Planner   Planner // optional; without it the requirement is the story
	Generator Generator
	Oracle    Oracle
	Gateway   sandbox.Gateway

	// MaxIterations bounds the number of EXECUTE-ARBITRATE cycles. Zero
	// means DefaultMaxIterations.
	MaxIterations int
	// FinalSourceRepair asks the oracle about the source in the last
	// iteration too, even though the patch is never executed.
	FinalSourceRepair bool

	// Observer receives every stage event; nil means a LogObserver on
	// Logger.
	Observer Observer
	Logger   *log.Logger
}

// Run generates the source and test for requirement and repairs them until
// the test passes or the budget is spent. The report is returned for every
// outcome; the error is non-nil exactly when the outcome is ABORTED and is
// then an *AbortError.
func (l *Loop) Run(ctx context.Context, requirement string) (*Report, error) {
	if l.Generator == nil || l.Oracle == nil || l.Gateway == nil {
		return nil, errors.New("repair: loop needs a generator, an oracle and a gateway")
	}
	if strings.TrimSpace(requirement) == "" {
		return nil, errors.New("repair: empty requirement")
	}
	maxIter := l.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	observer := l.Observer
	if observer == nil {
		observer = LogObserver{Logger: logger}
	}

	meter := llm.NewMeter()
	r := &run{
		loop:     l,
		ctx:      llm.WithMeter(ctx, meter),
		meter:    meter,
		store:    artifact.NewStore(),
		observer: observer,
		stage:    StageInit,
		state:    LoopState{MaxIterations: maxIter, Outcome: OutcomeRunning},
		report: &Report{
			RunID:       uuid.NewString(),
			Requirement: requirement,
			StartedAt:   time.Now().UTC(),
		},
	}
	logger.Printf("repair: run=%s started (max %d iterations)", r.report.RunID, maxIter)
	err := r.drive(requirement)
	r.finish(err)
	return r.report, err
}

// run is the mutable state of one Loop.Run.
type run struct {
	loop     *Loop
	ctx      context.Context
	meter    *llm.Meter
	store    *artifact.Store
	observer Observer
	stage    Stage
	state    LoopState
	story    string
	report   *Report
}

func (r *run) drive(requirement string) error {
	r.story = requirement
	if r.loop.Planner != nil {
		if err := r.enter(StagePlan); err != nil {
			return err
		}
		story, err := r.loop.Planner.Plan(llm.WithPhase(r.ctx, PhasePlan), requirement)
		if err != nil {
			return r.abort("planning failed", err)
		}
		if strings.TrimSpace(story) != "" {
			r.story = story
		}
	}
	r.report.Story = r.story

	if err := r.enter(StageGenerateSource); err != nil {
		return err
	}
	src, err := r.loop.Generator.GenerateSource(llm.WithPhase(r.ctx, PhaseSource), r.story)
	if err != nil {
		return r.abort("source generation failed", err)
	}
	if src, err = r.create(artifact.RoleSource, src); err != nil {
		return err
	}

	if err := r.enter(StageGenerateTest); err != nil {
		return err
	}
	test, err := r.loop.Generator.GenerateTest(llm.WithPhase(r.ctx, PhaseTest), r.story, src)
	if err != nil {
		return r.abort("test generation failed", err)
	}
	if _, err = r.create(artifact.RoleTest, test); err != nil {
		return err
	}

	for {
		if r.state.Iteration >= r.state.MaxIterations {
			return r.conclude(OutcomeExhausted)
		}
		if err := r.ctx.Err(); err != nil {
			return r.abort("run cancelled", err)
		}
		r.state.Iteration++

		res, err := r.execute(false)
		if err != nil {
			return err
		}
		if res.Passed {
			return r.conclude(OutcomeSuccess)
		}

		v, err := r.arbitrate(SubjectTest, res)
		if err != nil {
			return err
		}
		switch v.Decision {
		case DecisionFix:
			if err := r.patch(SubjectTest, v.Replacement); err != nil {
				return err
			}
			if res, err = r.execute(true); err != nil {
				return err
			}
			if res.Passed {
				return r.conclude(OutcomeSuccess)
			}
		case DecisionRemain:
		default:
			return r.abort(fmt.Sprintf("undecidable test verdict %q", v.Raw), nil)
		}

		// A source patch in the last iteration would never be executed.
		if r.state.Iteration >= r.state.MaxIterations && !r.loop.FinalSourceRepair {
			continue
		}

		v, err = r.arbitrate(SubjectSource, res)
		if err != nil {
			return err
		}
		switch v.Decision {
		case DecisionFix:
			if err := r.patch(SubjectSource, v.Replacement); err != nil {
				return err
			}
		case DecisionVeto:
		default:
			return r.abort(fmt.Sprintf("undecidable source verdict %q", v.Raw), nil)
		}
	}
}

func (r *run) create(role artifact.Role, a artifact.Artifact) (artifact.Artifact, error) {
	a.Role = role
	if strings.TrimSpace(a.Content) == "" {
		return artifact.Artifact{}, r.abort(fmt.Sprintf("generated %s has no content", strings.ToLower(string(role))), nil)
	}
	created, err := r.store.Create(a)
	if err != nil {
		return artifact.Artifact{}, r.abort("storing generated artifact", err)
	}
	rec := &ArtifactRecord{Role: role, Revision: created.Revision, Filename: created.Filename}
	r.report.Revisions = append(r.report.Revisions, *rec)
	r.emit(Event{Kind: EventPatched, Stage: r.stage, Artifact: rec})
	return created, nil
}

func (r *run) execute(retest bool) (sandbox.ExecutionResult, error) {
	if err := r.enter(StageExecute); err != nil {
		return sandbox.ExecutionResult{}, err
	}
	res := r.loop.Gateway.RunTests(r.ctx, r.store.Source(), r.store.Test())
	rec := ExecutionRecord{Iteration: r.state.Iteration, Retest: retest, Result: res}
	r.report.Executions = append(r.report.Executions, rec)
	r.emit(Event{Kind: EventExecuted, Stage: StageExecute, Result: &rec})
	return res, nil
}

func (r *run) arbitrate(subject artifact.Role, res sandbox.ExecutionResult) (Verdict, error) {
	stage := StageArbitrateTest
	if subject == SubjectSource {
		stage = StageArbitrateSource
	}
	if err := r.enter(stage); err != nil {
		return Verdict{}, err
	}
	req := ArbitrationRequest{
		Subject:       subject,
		Iteration:     r.state.Iteration,
		Requirement:   r.report.Requirement,
		Story:         r.story,
		Source:        r.store.Source(),
		Test:          r.store.Test(),
		Result:        res,
		FailureOutput: sandbox.FailureLog(res),
	}
	v, err := r.loop.Oracle.Arbitrate(llm.WithPhase(r.ctx, ArbitrationPhase(subject, r.state.Iteration)), req)
	if err != nil {
		return Verdict{}, r.abort(fmt.Sprintf("%s arbitration failed", strings.ToLower(string(subject))), err)
	}
	v = v.normalize(subject)
	r.report.Verdicts = append(r.report.Verdicts, VerdictRecord{Iteration: r.state.Iteration, Verdict: v})
	r.emit(Event{Kind: EventVerdict, Stage: stage, Verdict: &v})
	return v, nil
}

func (r *run) patch(role artifact.Role, content string) error {
	if err := r.enter(StagePatch); err != nil {
		return err
	}
	a, err := r.store.Patch(role, content)
	if err != nil {
		return r.abort("patching artifact", err)
	}
	rec := &ArtifactRecord{Iteration: r.state.Iteration, Role: role, Revision: a.Revision, Filename: a.Filename}
	r.report.Revisions = append(r.report.Revisions, *rec)
	r.emit(Event{Kind: EventPatched, Stage: StagePatch, Artifact: rec})
	return nil
}

func (r *run) conclude(outcome Outcome) error {
	r.state.Outcome = outcome
	return r.enter(StageDone)
}

// abort ends the run ABORTED from the current stage.
func (r *run) abort(reason string, err error) error {
	ae := &AbortError{Stage: r.stage, Reason: reason, Err: err}
	r.state.Outcome = OutcomeAborted
	if r.stage != StageDone {
		from := r.stage
		r.stage = StageDone
		r.emit(Event{Kind: EventEnter, Previous: from, Stage: StageDone, Err: ae})
	}
	return ae
}

func (r *run) finish(err error) {
	r.syncUsage()
	r.report.Outcome = r.state.Outcome
	r.report.State = r.state
	r.report.Source = r.store.Source()
	r.report.Test = r.store.Test()
	r.report.Usage = r.meter.Snapshot()
	r.report.FinishedAt = time.Now().UTC()
	if err != nil {
		r.report.Abort = err.Error()
	}
	r.emit(Event{Kind: EventFinished, Stage: StageDone, Err: err})
}

func (r *run) syncUsage() {
	u := r.meter.Snapshot()
	r.state.CallCount = u.Calls
	r.state.TokenCost = u.Tokens
}

func (r *run) emit(ev Event) {
	r.syncUsage()
	ev.RunID = r.report.RunID
	ev.State = r.state
	r.observer.Observe(r.ctx, ev)
}
