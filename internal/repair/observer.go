package repair

import (
	"context"
	"log"
)

// EventKind says what happened.
type EventKind string

const (
	EventEnter    EventKind = "enter"
	EventExecuted EventKind = "executed"
	EventVerdict  EventKind = "verdict"
	EventPatched  EventKind = "patched"
	EventFinished EventKind = "finished"
)

// Event is delivered to observers synchronously, in order.
type Event struct {
	Kind     EventKind
	RunID    string
	Stage    Stage
	Previous Stage
	State    LoopState
	Result   *ExecutionRecord
	Verdict  *Verdict
	Artifact *ArtifactRecord
	Err      error
}

// Observer receives every event of a run. Observers must not block.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// Observers fans an event out in slice order.
type Observers []Observer

func (obs Observers) Observe(ctx context.Context, ev Event) {
	for _, o := range obs {
		if o != nil {
			o.Observe(ctx, ev)
		}
	}
}

// LogObserver writes one line per execution, verdict, patch and outcome.
type LogObserver struct {
	Logger *log.Logger
}

func (o LogObserver) Observe(_ context.Context, ev Event) {
	logger := o.Logger
	if logger == nil {
		logger = log.Default()
	}
	switch ev.Kind {
	case EventExecuted:
		res := ev.Result.Result
		logger.Printf("repair: run=%s iteration=%d/%d execute passed=%t kind=%s exit=%d (%s)",
			ev.RunID, ev.State.Iteration, ev.State.MaxIterations, res.Passed, res.FailureKind, res.ExitCode, res.Duration)
	case EventVerdict:
		logger.Printf("repair: run=%s iteration=%d %s verdict %s", ev.RunID, ev.State.Iteration, ev.Verdict.Subject, ev.Verdict.Decision)
	case EventPatched:
		logger.Printf("repair: run=%s iteration=%d patched %s to revision %d", ev.RunID, ev.State.Iteration, ev.Artifact.Role, ev.Artifact.Revision)
	case EventFinished:
		if ev.Err != nil {
			logger.Printf("repair: run=%s %s after %d iteration(s), %d call(s): %v", ev.RunID, ev.State.Outcome, ev.State.Iteration, ev.State.CallCount, ev.Err)
			return
		}
		logger.Printf("repair: run=%s %s after %d iteration(s), %d call(s), %d token(s)",
			ev.RunID, ev.State.Outcome, ev.State.Iteration, ev.State.CallCount, ev.State.TokenCost)
	}
}
