package sandbox

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// maxJobBytes bounds the run message.
const maxJobBytes = 16 << 20

// Handler is the server side of the remote gateway: it executes one job per
// websocket connection with its Executor. It runs arbitrary commands and is
// meant to be deployed inside a disposable container. When Token is set,
// requests must carry it as a bearer token.
type Handler struct {
	Executor Executor
	Token    string
	Logger   *log.Logger
	Upgrader websocket.Upgrader
}

// BearerHeader returns the request header that authenticates against a
// Handler with token; nil for an empty token.
func BearerHeader(token string) http.Header {
	if token == "" {
		return nil
	}
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.Token == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(got), []byte(h.Token)) == 1
}

func (h *Handler) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.logf("sandbox: rejected unauthenticated request from %s", r.RemoteAddr)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logf("sandbox: upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxJobBytes)

	var mu sync.Mutex
	send := func(m message) error {
		mu.Lock()
		defer mu.Unlock()
		return conn.WriteJSON(m)
	}

	var msg message
	if err := conn.ReadJSON(&msg); err != nil {
		h.logf("sandbox: read job: %v", err)
		return
	}
	if msg.Type != msgRun || msg.Job == nil || msg.Job.Command == "" {
		_ = send(message{Type: msgError, Data: "expected a run message with a command"})
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	// The client hanging up cancels the job.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	h.logf("sandbox: job with %d file(s), %d package(s)", len(msg.Job.Files), len(msg.Job.Packages))
	res := h.Executor.Run(ctx, *msg.Job, streamWriter{msgStdout, send}, streamWriter{msgStderr, send})
	res.Stdout, res.Stderr = "", ""
	if err := send(message{Type: msgExit, Result: &res}); err != nil {
		h.logf("sandbox: send exit: %v", err)
	}
}

type streamWriter struct {
	kind string
	send func(message) error
}

func (s streamWriter) Write(p []byte) (int, error) {
	if err := s.send(message{Type: s.kind, Data: string(p)}); err != nil {
		return 0, err
	}
	return len(p), nil
}
