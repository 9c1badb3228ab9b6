package slscale

import (
	"io"

	base "github.com/ozym/slscale/pkg/slscale"
)

// Re-exported errors for convenience.
var ErrChannelForwarderClosed = base.ErrChannelForwarderClosed

// Type aliases so consumers can import github.com/ozym/slscale directly.
type (
	Config           = base.Config
	TransformConfig  = base.TransformConfig
	CheckpointConfig = base.CheckpointConfig
	MetricsConfig    = base.MetricsConfig
	SeedLinkConfig   = base.SeedLinkConfig
	DataLinkConfig   = base.DataLinkConfig
	Record           = base.Record
	Collector        = base.Collector
	Forwarder        = base.Forwarder
	Transformer      = base.Transformer
	CheckpointStore  = base.CheckpointStore
	Observability    = base.Observability
	Field            = base.Field
	Packet           = base.Packet
	SessionState     = base.SessionState
	Runtime          = base.Runtime
	Option           = base.Option
	Block            = base.Block
	ForwardFunc      = base.ForwardFunc
	Clock            = base.Clock
)

// Config helpers.
func LoadConfig(path string) (*Config, error) { return base.LoadConfig(path) }
func DefaultConfig() *Config                  { return base.DefaultConfig() }

// Runtime construction and options.
func NewRuntime(cfg *Config, opts ...Option) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithCollector(c Collector) Option         { return base.WithCollector(c) }
func WithForwarder(f Forwarder) Option         { return base.WithForwarder(f) }
func WithTransformer(t Transformer) Option     { return base.WithTransformer(t) }
func WithCheckpoints(s CheckpointStore) Option { return base.WithCheckpoints(s) }
func WithObservability(o Observability) Option { return base.WithObservability(o) }
func WithClock(c Clock) Option                 { return base.WithClock(c) }
func WithOutput(w io.Writer) Option            { return base.WithOutput(w) }
func WithVerbose(v int) Option                 { return base.WithVerbose(v) }

// Forwarder adapters.
func NewCallbackForwarder(fn ForwardFunc) Forwarder { return base.NewCallbackForwarder(fn) }

func NewChannelForwarder(buffer int) (Forwarder, <-chan Block, func()) {
	return base.NewChannelForwarder(buffer)
}
