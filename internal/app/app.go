// Package app wires configuration into a ready-to-run repair loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"greycells/internal/config"
	"greycells/internal/llm"
	"greycells/internal/metrics"
	"greycells/internal/output"
	"greycells/internal/repair"
	"greycells/internal/roles"
	"greycells/internal/sandbox"
)

type App struct {
	cfg     *config.Config
	profile sandbox.Profile
	client  llm.Client
	loop    *repair.Loop
	store   output.Store
	metrics *metrics.Observer
	logger  *log.Logger
	closers []func() error
}

// Options overrides parts of the wiring. Zero fields are built from the
// config.
type Options struct {
	Logger  *log.Logger
	Client  llm.Client
	Gateway sandbox.Gateway
	Store   output.Store
}

// Result is what one Run leaves behind.
type Result struct {
	Report  *repair.Report
	Written []string
	// Location is where the report can be read, when the store has an
	// external address.
	Location string
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	a := &App{cfg: cfg, logger: logger}

	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	a.profile = profile

	schemas, err := cfg.Schemas()
	if err != nil {
		return nil, err
	}

	base := opts.Client
	if base == nil {
		if base, err = llm.New(ctx, llm.Options{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Temperature: cfg.LLM.Temperature,
			FakeScript:  cfg.LLM.FakeScript,
		}); err != nil {
			return nil, fmt.Errorf("app: init llm: %w", err)
		}
	}
	a.client = llm.Wrap(base,
		llm.WithLogging(logger),
		llm.WithUsage(),
		llm.WithHooks(),
		llm.WithCache(cfg.LLM.CacheSize, cfg.LLM.CacheTTL),
		llm.Retry(cfg.LLM.Retries, cfg.LLM.RetryBase),
		llm.RateLimit(cfg.LLM.RPS, cfg.LLM.Burst),
		llm.WithTimeout(cfg.LLM.Timeout),
	)
	a.closers = append(a.closers, a.client.Close)

	team, err := roles.New(roles.Options{
		Client:  a.client,
		Schemas: schemas,
		Profile: profile,
		Logger:  logger,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	gateway := opts.Gateway
	if gateway == nil {
		gateway = newGateway(cfg.Sandbox, profile, logger)
	}

	a.store = opts.Store
	if a.store == nil {
		if a.store, err = a.openStore(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.metrics = metrics.New(nil)
	a.loop = &repair.Loop{
		Planner:           team,
		Generator:         team,
		Oracle:            team,
		Gateway:           gateway,
		MaxIterations:     cfg.Repair.MaxIterations,
		FinalSourceRepair: cfg.Repair.FinalSourceRepair,
		Observer:          repair.Observers{repair.LogObserver{Logger: logger}, a.metrics},
		Logger:            logger,
	}
	logger.Printf("app: provider=%s model=%s profile=%s sandbox=%s store=%s max_iterations=%d",
		cfg.LLM.Provider, a.client.Name(), profile.Name, cfg.Sandbox.Mode, cfg.Output.Store, cfg.Repair.MaxIterations)
	return a, nil
}

func newGateway(cfg config.SandboxConfig, profile sandbox.Profile, logger *log.Logger) sandbox.Gateway {
	if cfg.Mode == "remote" {
		return &sandbox.RemoteRunner{
			URL:            cfg.URL,
			Profile:        profile,
			Timeout:        cfg.Timeout,
			InstallTimeout: cfg.InstallTimeout,
			Header:         sandbox.BearerHeader(cfg.Token),
			Logger:         logger,
		}
	}
	return &sandbox.LocalRunner{
		Profile:        profile,
		Timeout:        cfg.Timeout,
		InstallTimeout: cfg.InstallTimeout,
		Executor:       sandbox.Executor{WorkRoot: cfg.WorkRoot, Keep: cfg.Keep, Logger: logger},
		Logger:         logger,
	}
}

func (a *App) Profile() sandbox.Profile   { return a.profile }
func (a *App) Store() output.Store        { return a.store }
func (a *App) Metrics() *metrics.Observer { return a.metrics }

// Run drives one repair run and persists what it produced. The report is
// returned for every outcome; the error carries an abort or a storage
// failure.
func (a *App) Run(ctx context.Context, requirement string) (*Result, error) {
	if a.cfg.TranscriptDir != "" {
		if err := os.MkdirAll(a.cfg.TranscriptDir, 0o755); err != nil {
			return nil, fmt.Errorf("app: transcript dir: %w", err)
		}
		ctx = llm.WithHook(ctx, &roles.Transcript{Dir: a.cfg.TranscriptDir, Logger: a.logger})
	}

	rep, runErr := a.loop.Run(ctx, requirement)
	if rep == nil {
		return nil, runErr
	}
	res := &Result{Report: rep}

	// Persisting must not be cut short by the cancellation that aborted the
	// run.
	pctx := context.WithoutCancel(ctx)
	written, err := output.Persist(pctx, a.store, rep, a.profile)
	res.Written = written
	if err != nil {
		return res, errors.Join(runErr, err)
	}
	if loc, err := a.store.Location(pctx, rep.RunID, output.ReportFile); err == nil {
		res.Location = loc
	}

	if a.cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.cfg.MetricsFile, a.metrics.Registry()); err != nil {
			a.logger.Printf("app: write metrics: %v", err)
		}
	}
	return res, runErr
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
