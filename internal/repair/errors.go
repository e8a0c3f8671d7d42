package repair

import "fmt"

// AbortError explains why a run ended ABORTED.
type AbortError struct {
	Stage  Stage
	Reason string
	Err    error
}

func (e *AbortError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("repair: aborted in %s: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("repair: aborted in %s: %s", e.Stage, e.Reason)
}

func (e *AbortError) Unwrap() error { return e.Err }
