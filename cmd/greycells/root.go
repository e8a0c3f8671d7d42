package main

import (
	"io"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	quiet  bool
}

func (c *cli) logger() *log.Logger {
	if c.quiet {
		return log.New(io.Discard, "", 0)
	}
	return log.New(c.stderr, "", log.LstdFlags)
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	root := &cobra.Command{
		Use:   "greycells",
		Short: "Generate a program and its test, then repair them until the test passes",
		Long: `greycells asks a model for a program and a unit test that satisfy a
requirement, runs the test in a sandbox and lets the model arbitrate every
failure: fix the test, fix the program, or keep both, within an iteration
budget.

Configuration comes from the environment (and .env): LLM_PROVIDER,
LLM_API_KEY, MAX_ITERATIONS, SANDBOX_MODE, OUTPUT_STORE and friends.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			_ = godotenv.Load()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().BoolVarP(&c.quiet, "quiet", "q", false, "do not log progress to stderr")

	root.AddCommand(
		newRunCmd(c),
		newExtractCmd(c),
		newProfilesCmd(c),
		newServeSandboxCmd(c),
	)
	return root
}
