package app

import (
	"context"
	"errors"
	"log"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"greycells/internal/config"
	"greycells/internal/sandbox"
)

// SandboxServer exposes a sandbox.Handler on /run, plus /healthz.
type SandboxServer struct {
	httpServer *http.Server
	logger     *log.Logger
}

func NewSandboxServer(cfg config.SandboxConfig, logger *log.Logger) *SandboxServer {
	if logger == nil {
		logger = log.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/run", &sandbox.Handler{
		Executor: sandbox.Executor{WorkRoot: cfg.WorkRoot, Keep: cfg.Keep, Logger: logger},
		Token:    cfg.Token,
		Logger:   logger,
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return &SandboxServer{
		httpServer: &http.Server{
			Addr:    cfg.Listen,
			Handler: h2c.NewHandler(mux, &http2.Server{}),
		},
		logger: logger,
	}
}

func (s *SandboxServer) Handler() http.Handler { return s.httpServer.Handler }

func (s *SandboxServer) Start() error {
	s.logger.Printf("Starting sandbox server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *SandboxServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
