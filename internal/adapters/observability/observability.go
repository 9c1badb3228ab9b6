// Package observability provides the Prometheus and slog backed
// implementation of the pipeline's logging and metrics port.
package observability

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ozym/slscale/internal/ports"
)

// Metric names recorded by the relay and batch pipelines.
const (
	MetricPacketsCollected = "packets_collected_total"
	MetricRecordsForwarded = "records_forwarded_total"
	MetricRecordsDropped   = "records_dropped_total"
	MetricDecodeErrors     = "decode_errors_total"
	MetricReconnects       = "reconnects_total"
	MetricCheckpointSaves  = "checkpoint_saves_total"
	MetricForwardLatency   = "forward_latency_seconds"
)

// Obs implements ports.Observability with a program-prefixed slog logger
// and a private Prometheus registry, so multiple instances can coexist
// in one process (and in tests).
type Obs struct {
	logger   *slog.Logger
	registry *prometheus.Registry
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// New builds an Obs writing diagnostics to w with the fixed program-name
// prefix. Verbosity maps onto log levels: 0 warnings and errors only,
// 1 adds progress information, 2 and above adds per-record detail.
func New(program string, verbose int, w io.Writer) *Obs {
	level := slog.LevelWarn
	switch {
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).
		With("program", program)

	registry := prometheus.NewRegistry()

	counters := make(map[string]prometheus.Counter)
	for name, help := range map[string]string{
		MetricPacketsCollected: "Total packets pulled from the subscription source.",
		MetricRecordsForwarded: "Total transformed records forwarded or written.",
		MetricRecordsDropped:   "Records dropped by the eligibility checks.",
		MetricDecodeErrors:     "Records abandoned due to decode failures.",
		MetricReconnects:       "Downstream reconnection attempts.",
		MetricCheckpointSaves:  "Checkpoint statefile writes.",
	} {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: program,
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(c)
		counters[name] = c
	}

	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: program,
		Name:      MetricForwardLatency,
		Help:      "Latency of one forwarded record, including reconnects.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	})
	registry.MustRegister(latency)

	return &Obs{
		logger:   logger,
		registry: registry,
		counters: counters,
		gauges:   make(map[string]prometheus.Gauge),
		histos:   map[string]prometheus.Observer{MetricForwardLatency: latency},
	}
}

// Registry exposes the private registry for the optional metrics server.
func (o *Obs) Registry() *prometheus.Registry { return o.registry }

func (o *Obs) LogDebug(msg string, fields ...ports.Field) {
	o.logger.Debug(msg, attrs(fields)...)
}

func (o *Obs) LogInfo(msg string, fields ...ports.Field) {
	o.logger.Info(msg, attrs(fields)...)
}

func (o *Obs) LogError(msg string, err error, fields ...ports.Field) {
	args := attrs(fields)
	if err != nil {
		args = append(args, "error", fmt.Sprint(err))
	}
	o.logger.Error(msg, args...)
}

func (o *Obs) IncCounter(name string, v float64) {
	if c, ok := o.counters[name]; ok {
		c.Add(v)
	}
}

func (o *Obs) SetGauge(name string, v float64) {
	if g, ok := o.gauges[name]; ok {
		g.Set(v)
	}
}

func (o *Obs) ObserveLatency(name string, seconds float64) {
	if h, ok := o.histos[name]; ok {
		h.Observe(seconds)
	}
}

func attrs(fields []ports.Field) []any {
	args := make([]any, 0, 2*len(fields))
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}

var _ ports.Observability = (*Obs)(nil)
