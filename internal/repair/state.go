package repair

import "fmt"

// enter moves the run to stage to. A move the machine does not allow ends the
// run ABORTED.
func (r *run) enter(to Stage) error {
	from := r.stage
	if !isAllowedTransition(from, to) {
		return r.abort(fmt.Sprintf("disallowed transition %s -> %s", from, to), nil)
	}
	r.stage = to
	r.emit(Event{Kind: EventEnter, Previous: from, Stage: to})
	return nil
}

func isAllowedTransition(from, to Stage) bool {
	if to == StageDone {
		return from != StageDone
	}
	switch from {
	case StageInit:
		return to == StagePlan || to == StageGenerateSource
	case StagePlan:
		return to == StageGenerateSource
	case StageGenerateSource:
		return to == StageGenerateTest
	case StageGenerateTest:
		return to == StageExecute
	case StageExecute:
		return to == StageArbitrateTest || to == StageArbitrateSource
	case StageArbitrateTest:
		return to == StagePatch || to == StageArbitrateSource
	case StageArbitrateSource:
		return to == StagePatch || to == StageExecute
	case StagePatch:
		return to == StageExecute
	default:
		return false
	}
}
