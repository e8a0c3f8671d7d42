// Package metrics exports repair-loop counters in the Prometheus format.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"greycells/internal/repair"
)

// Observer is a repair.Observer that records runs, executions, verdicts and
// patches.
type Observer struct {
	reg        *prometheus.Registry
	runs       *prometheus.CounterVec
	iterations prometheus.Histogram
	calls      prometheus.Histogram
	tokens     prometheus.Counter
	executions *prometheus.CounterVec
	execTime   prometheus.Histogram
	verdicts   *prometheus.CounterVec
	patches    *prometheus.CounterVec
}

// New registers the metrics with reg, or with a fresh registry when reg is
// nil.
func New(reg *prometheus.Registry) *Observer {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	o := &Observer{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "greycells_runs_total",
			Help: "Finished runs by outcome.",
		}, []string{"outcome"}),
		iterations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "greycells_run_iterations",
			Help:    "Iterations used per finished run.",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),
		calls: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "greycells_run_llm_calls",
			Help:    "Model calls per finished run.",
			Buckets: prometheus.LinearBuckets(1, 2, 12),
		}),
		tokens: f.NewCounter(prometheus.CounterOpts{
			Name: "greycells_llm_tokens_total",
			Help: "Tokens spent by finished runs.",
		}),
		executions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "greycells_executions_total",
			Help: "Test executions by failure kind.",
		}, []string{"failure_kind"}),
		execTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "greycells_execution_seconds",
			Help:    "Wall time of test executions.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "greycells_verdicts_total",
			Help: "Arbitration verdicts by subject and decision.",
		}, []string{"subject", "decision"}),
		patches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "greycells_patches_total",
			Help: "Artifact replacements by role.",
		}, []string{"role"}),
	}
	o.reg = reg
	return o
}

// Registry is the registry the metrics live in.
func (o *Observer) Registry() *prometheus.Registry { return o.reg }

func (o *Observer) Observe(_ context.Context, ev repair.Event) {
	switch ev.Kind {
	case repair.EventExecuted:
		res := ev.Result.Result
		o.executions.WithLabelValues(string(res.FailureKind)).Inc()
		o.execTime.Observe(res.Duration.Seconds())
	case repair.EventVerdict:
		o.verdicts.WithLabelValues(string(ev.Verdict.Subject), string(ev.Verdict.Decision)).Inc()
	case repair.EventPatched:
		if ev.Artifact.Revision > 1 {
			o.patches.WithLabelValues(string(ev.Artifact.Role)).Inc()
		}
	case repair.EventFinished:
		o.runs.WithLabelValues(string(ev.State.Outcome)).Inc()
		o.iterations.Observe(float64(ev.State.Iteration))
		o.calls.Observe(float64(ev.State.CallCount))
		o.tokens.Add(float64(ev.State.TokenCost))
	}
}

// WriteTextfile writes everything g gathers to path in the text exposition
// format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}
