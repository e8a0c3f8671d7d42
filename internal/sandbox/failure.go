package sandbox

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxLogBytes bounds each part of the failure log handed to arbitration.
const maxLogBytes = 6000

// FailureLog renders a failed result the way arbitration reads it: a summary
// line, the captured error stream and the fault, if any.
func FailureLog(r ExecutionResult) string {
	if r.Passed {
		return "Summary: Tests Passed"
	}
	summary := "Tests Failed"
	switch r.FailureKind {
	case FailureTimeout:
		summary = "Timeout"
	case FailureCrash:
		summary = "Execution Error"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Summary: %s\n", summary)
	details := strings.TrimSpace(r.Stderr)
	if details == "" {
		details = strings.TrimSpace(r.Stdout)
	}
	fmt.Fprintf(&b, "Details:\n%s\n", tail(details, maxLogBytes))
	traceback := r.Error
	if traceback == "" && r.ExitCode != 0 {
		traceback = fmt.Sprintf("exit code %d", r.ExitCode)
	}
	fmt.Fprintf(&b, "Traceback:\n%s", tail(traceback, maxLogBytes))
	return strings.TrimRight(b.String(), "\n")
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "...\n" + s[runeStart(s, len(s)-n):]
}

// runeStart moves i forward to the first byte of a rune, so a cut at i never
// splits a UTF-8 sequence.
func runeStart(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}
