package sandbox

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestFailureLog(t *testing.T) {
	got := FailureLog(ExecutionResult{
		FailureKind: FailureAssertion,
		ExitCode:    1,
		Stderr:      "AssertionError: -1 != 5\n",
	})
	assert.Equal(t, "Summary: Tests Failed\nDetails:\nAssertionError: -1 != 5\nTraceback:\nexit code 1", got)

	got = FailureLog(ExecutionResult{FailureKind: FailureTimeout, ExitCode: -1, Error: "timed out after 30s"})
	assert.True(t, strings.HasPrefix(got, "Summary: Timeout\n"))
	assert.Contains(t, got, "Traceback:\ntimed out after 30s")

	got = FailureLog(ExecutionResult{FailureKind: FailureCrash, Stdout: "only stdout"})
	assert.Contains(t, got, "Summary: Execution Error")
	assert.Contains(t, got, "Details:\nonly stdout")

	assert.Equal(t, "Summary: Tests Passed", FailureLog(ExecutionResult{Passed: true}))

	long := FailureLog(ExecutionResult{Stderr: strings.Repeat("x", maxLogBytes*2)})
	assert.Less(t, len(long), maxLogBytes+100)
}

func TestTailKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "...\né", tail("aéé", 3))
	assert.Equal(t, "aéé", tail("aéé", 5))

	got := FailureLog(ExecutionResult{Stderr: strings.Repeat("é", maxLogBytes)})
	assert.True(t, utf8.ValidString(got))
}
