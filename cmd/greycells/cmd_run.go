package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"greycells/internal/app"
	"greycells/internal/config"
	"greycells/internal/repair"
	"greycells/internal/util/jsonutil"
)

type runFlags struct {
	maxIter     int
	finalRepair bool
	out         string
	store       string
	profile     string
	metricsFile string
	transcripts string
	jsonReport  bool
}

func newRunCmd(c *cli) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run REQUIREMENT...",
		Short: "Generate, test and repair a program for a requirement",
		Long: `Runs one repair loop. The requirement is the joined arguments, or stdin
when the only argument is "-".

Exit status: 0 when the test passes, 1 when the iteration budget runs out,
2 when the run is aborted.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requirement, err := readRequirement(c.stdin, args)
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg, app.Options{Logger: c.logger()})
			if err != nil {
				return err
			}
			defer a.Close()

			res, runErr := a.Run(ctx, requirement)
			if res == nil {
				return runErr
			}
			if err := printResult(c.stdout, res, f.jsonReport); err != nil {
				return err
			}
			return exitFor(res.Report, runErr)
		},
	}
	fl := cmd.Flags()
	fl.IntVar(&f.maxIter, "max-iter", 0, "iteration budget (default MAX_ITERATIONS or 3)")
	fl.BoolVar(&f.finalRepair, "final-source-repair", false, "arbitrate the source in the last iteration too")
	fl.StringVar(&f.out, "out", "", "output directory of the file store (default OUTPUT_DIR or ./output)")
	fl.StringVar(&f.store, "store", "", "output store: file, memory, s3 or postgres")
	fl.StringVar(&f.profile, "profile", "", "sandbox profile (see greycells profiles)")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	fl.StringVar(&f.transcripts, "transcripts", "", "write every raw model answer to this directory")
	fl.BoolVar(&f.jsonReport, "json", false, "print the run report as JSON")
	return cmd
}

// apply overrides cfg with the flags that were set.
func (f runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("max-iter") {
		cfg.Repair.MaxIterations = f.maxIter
	}
	if fl.Changed("final-source-repair") {
		cfg.Repair.FinalSourceRepair = f.finalRepair
	}
	if fl.Changed("out") {
		cfg.Output.Dir = f.out
	}
	if fl.Changed("store") {
		cfg.Output.Store = strings.ToLower(f.store)
	}
	if fl.Changed("profile") {
		cfg.Sandbox.Profile = f.profile
	}
	if fl.Changed("metrics-file") {
		cfg.MetricsFile = f.metricsFile
	}
	if fl.Changed("transcripts") {
		cfg.TranscriptDir = f.transcripts
	}
	return cfg.Validate()
}

func readRequirement(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read requirement: %w", err)
		}
		args = []string{string(b)}
	}
	requirement := strings.TrimSpace(strings.Join(args, " "))
	if requirement == "" {
		return "", errors.New("requirement is empty")
	}
	return requirement, nil
}

func printResult(w io.Writer, res *app.Result, asJSON bool) error {
	rep := res.Report
	if asJSON {
		b, err := jsonutil.MarshalNoEscapeIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	fmt.Fprintf(w, "run:        %s\n", rep.RunID)
	fmt.Fprintf(w, "outcome:    %s\n", rep.Outcome)
	fmt.Fprintf(w, "iterations: %d/%d\n", rep.State.Iteration, rep.State.MaxIterations)
	fmt.Fprintf(w, "llm calls:  %d (%d tokens)\n", rep.State.CallCount, rep.State.TokenCost)
	if rep.Abort != "" {
		fmt.Fprintf(w, "aborted:    %s\n", rep.Abort)
	}
	if len(res.Written) > 0 {
		fmt.Fprintf(w, "files:      %s\n", strings.Join(res.Written, ", "))
	}
	if res.Location != "" {
		fmt.Fprintf(w, "report:     %s\n", res.Location)
	}
	return nil
}

func exitFor(rep *repair.Report, runErr error) error {
	switch {
	case rep.Outcome == repair.OutcomeSuccess && runErr == nil:
		return nil
	case rep.Outcome == repair.OutcomeExhausted && runErr == nil:
		return &exitError{code: exitExhausted}
	case runErr != nil:
		return &exitError{code: exitAborted, msg: runErr.Error()}
	}
	return &exitError{code: exitAborted, msg: fmt.Sprintf("run ended %s", rep.Outcome)}
}
