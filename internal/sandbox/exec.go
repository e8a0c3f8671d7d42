package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"
	"time"
	"unicode/utf8"
)

// Job is one isolated test run. It is also the wire format of the remote
// gateway.
type Job struct {
	Files            map[string]string `json:"files"`
	Packages         []string          `json:"packages,omitempty"`
	Install          string            `json:"install,omitempty"`
	Command          string            `json:"command"`
	TimeoutMS        int64             `json:"timeout_ms"`
	InstallTimeoutMS int64             `json:"install_timeout_ms,omitempty"`
}

const (
	defaultTimeout        = 30 * time.Second
	defaultInstallTimeout = 120 * time.Second
	// maxCapture bounds each captured stream; the tail is kept.
	maxCapture = 64 << 10
)

func (j Job) timeout() time.Duration {
	if j.TimeoutMS <= 0 {
		return defaultTimeout
	}
	return time.Duration(j.TimeoutMS) * time.Millisecond
}

func (j Job) installTimeout() time.Duration {
	if j.InstallTimeoutMS <= 0 {
		return defaultInstallTimeout
	}
	return time.Duration(j.InstallTimeoutMS) * time.Millisecond
}

// Executor runs jobs as shell commands in fresh temporary directories.
type Executor struct {
	// WorkRoot is the parent of the job directories; empty means os.TempDir().
	WorkRoot string
	// Keep leaves job directories in place for inspection.
	Keep   bool
	Shell  string
	Logger *log.Logger
}

func (e Executor) logf(format string, args ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}

func (e Executor) shell() string {
	if e.Shell != "" {
		return e.Shell
	}
	return "sh"
}

// Run writes the job files, installs packages and runs the test command.
// stdout and stderr, when non-nil, receive the streams as they are produced.
func (e Executor) Run(ctx context.Context, job Job, stdout, stderr io.Writer) ExecutionResult {
	start := time.Now()
	res := e.run(ctx, job, stdout, stderr)
	res.Duration = time.Since(start)
	return res
}

func (e Executor) run(ctx context.Context, job Job, stdout, stderr io.Writer) ExecutionResult {
	dir, err := os.MkdirTemp(e.WorkRoot, "greycells-")
	if err != nil {
		return crashed("sandbox: create work dir", err)
	}
	if e.Keep {
		e.logf("sandbox: keeping %s", dir)
	} else {
		defer os.RemoveAll(dir)
	}
	if err := writeFiles(dir, job.Files); err != nil {
		return crashed("sandbox: write files", err)
	}

	if job.Install != "" && len(job.Packages) > 0 {
		e.logf("sandbox: installing %d package(s)", len(job.Packages))
		res := e.command(ctx, dir, job.Install, job.installTimeout(), stdout, stderr)
		if !res.Passed {
			// A failed install is an environment fault, not a test verdict.
			if res.FailureKind == FailureAssertion {
				res.FailureKind = FailureCrash
				res.Error = fmt.Sprintf("package install failed with exit code %d", res.ExitCode)
			} else if res.FailureKind == FailureTimeout {
				res.Error = "package install timed out after " + job.installTimeout().String()
			}
			return res
		}
	}
	return e.command(ctx, dir, job.Command, job.timeout(), stdout, stderr)
}

func (e Executor) command(ctx context.Context, dir, line string, timeout time.Duration, stdout, stderr io.Writer) ExecutionResult {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outBuf := &tailBuffer{max: maxCapture}
	errBuf := &tailBuffer{max: maxCapture}
	cmd := exec.CommandContext(ctx, e.shell(), "-c", line)
	cmd.Dir = dir
	cmd.Stdout = teeTo(outBuf, stdout)
	cmd.Stderr = teeTo(errBuf, stderr)
	// Children that keep the pipes open must not outlive the deadline.
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()
	res := ExecutionResult{Stdout: outBuf.String(), Stderr: errBuf.String()}
	switch {
	case err == nil:
		res.Passed = true
		res.FailureKind = FailureNone
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.FailureKind = FailureTimeout
		res.ExitCode = -1
		res.Error = "timed out after " + timeout.String()
	case ctx.Err() != nil:
		res.FailureKind = FailureCrash
		res.ExitCode = -1
		res.Error = ctx.Err().Error()
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.FailureKind = FailureAssertion
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.FailureKind = FailureCrash
			res.ExitCode = -1
			res.Error = err.Error()
		}
	}
	return res
}

func writeFiles(dir string, files map[string]string) error {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := checkRelPath(name); err != nil {
			return err
		}
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(p, []byte(files[name]), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func teeTo(buf io.Writer, sink io.Writer) io.Writer {
	if sink == nil {
		return buf
	}
	return io.MultiWriter(buf, sink)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
		for t.buf.Len() > 0 && !utf8.RuneStart(t.buf.Bytes()[0]) {
			t.buf.Next(1)
		}
		t.truncated = true
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.truncated {
		return "...(truncated)\n" + t.buf.String()
	}
	return t.buf.String()
}
