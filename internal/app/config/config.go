// Package config resolves the live relay's configuration from an
// optional YAML file with command line overrides applied by the caller.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ozym/slscale/internal/adapters/datalink"
	"github.com/ozym/slscale/internal/adapters/seedlink"
	"github.com/ozym/slscale/internal/ports"
)

// Transform holds the process-wide linear transform parameters. The
// live relay defaults the scale to 10; the batch scaler uses 1.
type Transform struct {
	Alpha  float64 `yaml:"alpha"`
	Beta   float64 `yaml:"beta"`
	Orient string  `yaml:"orient"`
}

// Checkpoint configures the statefile store.
type Checkpoint struct {
	// Path of the statefile; empty disables checkpointing.
	Path string `yaml:"path"`

	// Interval is the number of forwarded packets between saves.
	Interval int `yaml:"interval"`
}

// Metrics configures the optional Prometheus endpoint.
type Metrics struct {
	// Addr to listen on; empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// Config is resolved once at startup and passed by reference; nothing
// mutates it afterwards.
type Config struct {
	Transform  Transform       `yaml:"transform"`
	SeedLink   seedlink.Config `yaml:"seedlink"`
	DataLink   datalink.Config `yaml:"datalink"`
	Checkpoint Checkpoint      `yaml:"checkpoint"`
	Metrics    Metrics         `yaml:"metrics"`

	// Reconnect is the fixed backoff between downstream reconnection
	// attempts.
	Reconnect time.Duration `yaml:"reconnect"`
}

// Load reads a YAML configuration file and resolves defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns the built-in live mode configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

func (c *Config) ApplyDefaults() {
	if c.Transform.Beta == 0 {
		c.Transform.Beta = 10.0
	}
	if c.Transform.Orient == "" {
		c.Transform.Orient = "T"
	}
	if c.Checkpoint.Interval == 0 {
		c.Checkpoint.Interval = 300
	}
	if c.Reconnect <= 0 {
		c.Reconnect = 10 * time.Second
	}
	c.SeedLink.ApplyDefaults()
	c.DataLink.ApplyDefaults()
}

func (c *Config) Validate() error {
	if len(c.Transform.Orient) > 1 {
		return fmt.Errorf("orient must be a single character: %q", c.Transform.Orient)
	}
	if c.Checkpoint.Interval < 0 {
		return fmt.Errorf("checkpoint interval must not be negative: %d", c.Checkpoint.Interval)
	}
	if err := c.SeedLink.Validate(); err != nil {
		return fmt.Errorf("seedlink config: %w", err)
	}
	return nil
}

// Policy derives the relay loop's timing policy.
func (c *Config) Policy() ports.Policy {
	return ports.Policy{
		StateInterval:  c.Checkpoint.Interval,
		ReconnectDelay: c.Reconnect,
		NetworkDelay:   c.SeedLink.NetworkDelay,
		NetworkTimeout: c.SeedLink.NetworkTimeout,
		KeepAlive:      c.SeedLink.KeepAlive,
	}
}
