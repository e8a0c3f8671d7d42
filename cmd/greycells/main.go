// Command greycells generates a program and its unit test from a
// requirement, then repairs them until the test passes.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// exitError ends the process with code after its message (if any) is
// printed.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

const (
	exitSuccess   = 0
	exitExhausted = 1
	exitAborted   = 2
)

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(stderr, "greycells:", ee.msg)
		}
		return ee.code
	}
	fmt.Fprintln(stderr, "greycells:", err)
	return exitAborted
}
