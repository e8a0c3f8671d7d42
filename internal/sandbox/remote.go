package sandbox

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"greycells/internal/artifact"
)

// Message types of the websocket protocol. The client sends one run message;
// the server streams stdout and stderr chunks and finishes with exit (or
// error).
const (
	msgRun    = "run"
	msgStdout = "stdout"
	msgStderr = "stderr"
	msgExit   = "exit"
	msgError  = "error"
)

type message struct {
	Type   string           `json:"type"`
	Job    *Job             `json:"job,omitempty"`
	Data   string           `json:"data,omitempty"`
	Result *ExecutionResult `json:"result,omitempty"`
}

// replyGrace is how long past the job's own timeouts the client waits for the
// exit message.
const replyGrace = 10 * time.Second

// RemoteRunner sends the job to a sandbox service over a websocket.
type RemoteRunner struct {
	URL            string
	Profile        Profile
	Timeout        time.Duration
	InstallTimeout time.Duration
	Dialer         *websocket.Dialer
	Header         http.Header
	Logger         *log.Logger
}

func (r *RemoteRunner) RunTests(ctx context.Context, source, test artifact.Artifact) ExecutionResult {
	start := time.Now()
	res := r.run(ctx, source, test)
	res.Duration = time.Since(start)
	if r.Logger != nil {
		r.Logger.Printf("sandbox: remote %s exit=%d kind=%s in %s", r.URL, res.ExitCode, res.FailureKind, res.Duration.Round(time.Millisecond))
	}
	return res
}

func (r *RemoteRunner) run(ctx context.Context, source, test artifact.Artifact) ExecutionResult {
	job, err := r.Profile.Job(source, test, r.Timeout, r.InstallTimeout)
	if err != nil {
		return crashed("sandbox: prepare job", err)
	}
	dialer := r.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, r.URL, r.Header)
	if err != nil {
		return crashed("sandbox: dial "+r.URL, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	wait := job.timeout() + replyGrace
	if job.Install != "" {
		wait += job.installTimeout()
	}
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	if err := conn.WriteJSON(message{Type: msgRun, Job: &job}); err != nil {
		return crashed("sandbox: send job", err)
	}

	stdout := &tailBuffer{max: maxCapture}
	stderr := &tailBuffer{max: maxCapture}
	withStreams := func(res ExecutionResult) ExecutionResult {
		res.Stdout, res.Stderr = stdout.String(), stderr.String()
		return res
	}
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			var ne net.Error
			switch {
			case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
				return withStreams(ExecutionResult{FailureKind: FailureTimeout, ExitCode: -1, Error: "no reply from sandbox within " + wait.String()})
			case ctx.Err() != nil:
				return withStreams(crashed("sandbox: canceled", ctx.Err()))
			}
			return withStreams(crashed("sandbox: read reply", err))
		}
		switch msg.Type {
		case msgStdout:
			_, _ = stdout.Write([]byte(msg.Data))
		case msgStderr:
			_, _ = stderr.Write([]byte(msg.Data))
		case msgError:
			return withStreams(crashed("sandbox: remote error: "+msg.Data, nil))
		case msgExit:
			if msg.Result == nil {
				return withStreams(crashed("sandbox: exit message without result", nil))
			}
			return withStreams(normalizeResult(*msg.Result))
		}
	}
}

// normalizeResult makes Passed and FailureKind agree.
func normalizeResult(res ExecutionResult) ExecutionResult {
	if res.Passed {
		res.FailureKind = FailureNone
		return res
	}
	if !res.FailureKind.Valid() || res.FailureKind == FailureNone {
		res.FailureKind = FailureAssertion
	}
	return res
}
