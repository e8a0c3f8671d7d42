package sandbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRemoteRunnerAgainstHandler(t *testing.T) {
	srv := httptest.NewServer(&Handler{})
	defer srv.Close()

	src, test := shellArtifacts()
	r := &RemoteRunner{URL: wsURL(srv), Profile: shellProfile("sh {{.TestFile}}"), Timeout: 5 * time.Second}
	res := r.RunTests(context.Background(), src, test)
	assert.True(t, res.Passed, "stderr: %s err: %s", res.Stderr, res.Error)
	assert.Equal(t, "pass\n", res.Stdout)

	src.Content = "add() { echo 0; }\n"
	res = r.RunTests(context.Background(), src, test)
	assert.False(t, res.Passed)
	assert.Equal(t, FailureAssertion, res.FailureKind)
	assert.Equal(t, "expected 5\n", res.Stderr)
}

func TestRemoteRunnerTimeoutFromServer(t *testing.T) {
	srv := httptest.NewServer(&Handler{})
	defer srv.Close()

	src, test := shellArtifacts()
	r := &RemoteRunner{URL: wsURL(srv), Profile: shellProfile("exec sleep 5"), Timeout: 100 * time.Millisecond}
	res := r.RunTests(context.Background(), src, test)
	assert.Equal(t, FailureTimeout, res.FailureKind)
}

func TestRemoteRunnerDialFailure(t *testing.T) {
	src, test := shellArtifacts()
	r := &RemoteRunner{URL: "ws://127.0.0.1:1/run", Profile: shellProfile("true")}
	res := r.RunTests(context.Background(), src, test)
	assert.Equal(t, FailureCrash, res.FailureKind)
	assert.Contains(t, res.Error, "dial")
}

func TestRemoteRunnerProtocolErrors(t *testing.T) {
	var upgrader websocket.Upgrader
	reply := func(m *message) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			conn, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				return
			}
			defer conn.Close()
			var in message
			if err := conn.ReadJSON(&in); err != nil {
				return
			}
			assert.Equal(t, msgRun, in.Type)
			if m == nil {
				// Hold the connection open without answering.
				time.Sleep(time.Second)
				return
			}
			_ = conn.WriteJSON(message{Type: msgStdout, Data: "partial"})
			_ = conn.WriteJSON(*m)
		}
	}
	src, test := shellArtifacts()

	srv := httptest.NewServer(reply(&message{Type: msgError, Data: "no capacity"}))
	res := (&RemoteRunner{URL: wsURL(srv), Profile: shellProfile("true")}).RunTests(context.Background(), src, test)
	srv.Close()
	assert.Equal(t, FailureCrash, res.FailureKind)
	assert.Contains(t, res.Error, "no capacity")
	assert.Equal(t, "partial", res.Stdout)

	srv = httptest.NewServer(reply(&message{Type: msgExit, Result: &ExecutionResult{ExitCode: 2}}))
	res = (&RemoteRunner{URL: wsURL(srv), Profile: shellProfile("true")}).RunTests(context.Background(), src, test)
	srv.Close()
	assert.Equal(t, FailureAssertion, res.FailureKind, "unlabeled failure defaults to ASSERTION")

	srv = httptest.NewServer(reply(nil))
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	res = (&RemoteRunner{URL: wsURL(srv), Profile: shellProfile("true")}).RunTests(ctx, src, test)
	cancel()
	srv.Close()
	assert.Equal(t, FailureTimeout, res.FailureKind)
}

func TestHandlerRejectsMissingToken(t *testing.T) {
	srv := httptest.NewServer(&Handler{Token: "tok"})
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(wsURL(srv), BearerHeader("wrong"))
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	src, test := shellArtifacts()
	r := &RemoteRunner{URL: wsURL(srv), Profile: shellProfile("sh {{.TestFile}}"), Timeout: 5 * time.Second, Header: BearerHeader("tok")}
	res := r.RunTests(context.Background(), src, test)
	assert.True(t, res.Passed, "stderr: %s err: %s", res.Stderr, res.Error)

	assert.Nil(t, BearerHeader(""))
}
