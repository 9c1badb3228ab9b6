package slscale

import (
	"github.com/ozym/slscale/internal/adapters/datalink"
	"github.com/ozym/slscale/internal/adapters/seedlink"
	"github.com/ozym/slscale/internal/app/config"
	"github.com/ozym/slscale/internal/clock"
	"github.com/ozym/slscale/internal/domain"
	"github.com/ozym/slscale/internal/ports"
)

// Config re-exports the root configuration struct so embedders can
// construct or modify it programmatically.
type Config = config.Config

type (
	// TransformConfig holds the linear transform parameters.
	TransformConfig = config.Transform
	// CheckpointConfig configures the statefile store.
	CheckpointConfig = config.Checkpoint
	// MetricsConfig configures the metrics HTTP endpoint.
	MetricsConfig = config.Metrics
	// SeedLinkConfig holds the upstream session details.
	SeedLinkConfig = seedlink.Config
	// DataLinkConfig holds the downstream session details.
	DataLinkConfig = datalink.Config
)

// Record is the waveform record flowing through the pipeline.
type Record = domain.Record

type (
	// Collector streams packets from the subscription source.
	Collector = ports.Collector
	// Forwarder sends encoded records to the replication endpoint.
	Forwarder = ports.Forwarder
	// Transformer scales and re-encodes one record.
	Transformer = ports.Transformer
	// CheckpointStore persists the resumable read position.
	CheckpointStore = ports.CheckpointStore
	// Observability emits logs and metrics for the pipeline.
	Observability = ports.Observability
	// Field is a structured log field.
	Field = ports.Field
	// Packet is one unit pulled from the subscription source.
	Packet = ports.Packet
	// SessionState is the persisted read position.
	SessionState = ports.SessionState
	// Clock supplies the time source used for backoff and cadence.
	Clock = clock.Clock
)

// LoadConfig reads a YAML configuration file and resolves defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the built-in live mode configuration.
func DefaultConfig() *Config {
	return config.Default()
}
