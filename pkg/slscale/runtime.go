// Package slscale exposes the live relay as an embeddable runtime.
// Callers load a configuration, override collaborators with options,
// and run the pipeline under a cancellable context.
package slscale

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ozym/slscale/internal/adapters/checkpoint"
	"github.com/ozym/slscale/internal/adapters/datalink"
	"github.com/ozym/slscale/internal/adapters/mseed"
	"github.com/ozym/slscale/internal/adapters/observability"
	"github.com/ozym/slscale/internal/adapters/seedlink"
	"github.com/ozym/slscale/internal/app/config"
	"github.com/ozym/slscale/internal/app/relay"
	"github.com/ozym/slscale/internal/clock"
	"github.com/ozym/slscale/internal/ports"
	"github.com/ozym/slscale/internal/transform"
)

// Option customizes the dependencies used by the Runtime.
type Option func(*overrides)

type overrides struct {
	collector   ports.Collector
	forwarder   ports.Forwarder
	transformer ports.Transformer
	checkpoints ports.CheckpointStore
	obs         ports.Observability
	clk         clock.Clock
	output      io.Writer
	verbose     int
}

// WithCollector injects a custom upstream collector.
func WithCollector(c ports.Collector) Option {
	return func(o *overrides) { o.collector = c }
}

// WithForwarder injects a custom downstream forwarder, overriding the
// DataLink client (and the stdout fallback).
func WithForwarder(f ports.Forwarder) Option {
	return func(o *overrides) { o.forwarder = f }
}

// WithTransformer overrides the configured scaler.
func WithTransformer(t ports.Transformer) Option {
	return func(o *overrides) { o.transformer = t }
}

// WithCheckpoints injects a custom checkpoint store.
func WithCheckpoints(s ports.CheckpointStore) Option {
	return func(o *overrides) { o.checkpoints = s }
}

// WithObservability plugs in a custom logging/metrics backend.
func WithObservability(obs ports.Observability) Option {
	return func(o *overrides) { o.obs = obs }
}

// WithClock injects a clock, letting tests drive backoff deterministically.
func WithClock(c clock.Clock) Option {
	return func(o *overrides) { o.clk = c }
}

// WithOutput overrides the writer used when no downstream endpoint is
// configured. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *overrides) { o.output = w }
}

// WithVerbose sets the logging verbosity of the default observability
// backend.
func WithVerbose(v int) Option {
	return func(o *overrides) { o.verbose = v }
}

// Runtime wires the collector → transform → forwarder pipeline and runs
// the relay loop with an optional Prometheus endpoint.
type Runtime struct {
	cfg        *config.Config
	relay      *relay.Relay
	obs        ports.Observability
	metricsSrv *http.Server
}

// NewRuntime bootstraps the default adapters (SeedLink collector,
// DataLink forwarder, YAML statefile store, Prometheus observability)
// and applies any overrides.
func NewRuntime(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var over overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&over)
		}
	}

	obs := over.obs
	if obs == nil {
		obs = observability.New("slscale", over.verbose, os.Stderr)
	}

	clk := over.clk
	if clk == nil {
		clk = clock.Real()
	}

	tr := over.transformer
	if tr == nil {
		enc, err := mseed.NewEncoder(mseed.EncodingSteim2)
		if err != nil {
			return nil, err
		}
		tr = transform.NewScaler(cfg.Transform.Alpha, cfg.Transform.Beta, cfg.Transform.Orient, enc)
	}

	col := over.collector
	if col == nil {
		var err error
		col, err = seedlink.NewCollector(cfg.SeedLink, obs, clk)
		if err != nil {
			return nil, err
		}
	}

	fwd := over.forwarder
	if fwd == nil && cfg.DataLink.Address != "" {
		var err error
		fwd, err = datalink.NewClient(cfg.DataLink)
		if err != nil {
			return nil, err
		}
	}

	cps := over.checkpoints
	if cps == nil && cfg.Checkpoint.Path != "" {
		cps = checkpoint.NewFileStore(cfg.Checkpoint.Path)
	}

	out := over.output
	if out == nil {
		out = os.Stdout
	}

	loop, err := relay.New(relay.Options{
		Collector:     col,
		Forwarder:     fwd,
		Transformer:   tr,
		Decoder:       mseed.NewDecoder(),
		Checkpoints:   cps,
		Policy:        cfg.Policy(),
		Observability: obs,
		Clock:         clk,
		Output:        out,
	})
	if err != nil {
		return nil, err
	}

	return &Runtime{cfg: cfg, relay: loop, obs: obs}, nil
}

// Run starts the optional metrics endpoint, drives the relay loop until
// the context is cancelled, and shuts everything down.
func (r *Runtime) Run(ctx context.Context) error {
	r.startMetrics()
	err := r.relay.Run(ctx)
	r.stopMetrics()
	return err
}

// State reports the relay's lifecycle phase.
func (r *Runtime) State() relay.State { return r.relay.State() }

func (r *Runtime) startMetrics() {
	if r.cfg.Metrics.Addr == "" {
		return
	}
	prom, ok := r.obs.(*observability.Obs)
	if !ok {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prom.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{Addr: r.cfg.Metrics.Addr, Handler: mux}
	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.obs.LogError("metrics server exited", err)
		}
	}()
}

func (r *Runtime) stopMetrics() {
	if r.metricsSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.metricsSrv.Shutdown(ctx)
}
