package slscale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozym/slscale/internal/app/relay"
)

func TestNewRuntimeRequiresConfig(t *testing.T) {
	_, err := NewRuntime(nil)
	assert.Error(t, err)
}

func TestNewRuntimeDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SeedLink.Address = "upstream:18000"

	rt, err := NewRuntime(cfg)
	require.NoError(t, err)
	assert.Equal(t, relay.Idle, rt.State())
}

func TestNewRuntimeWithOverrides(t *testing.T) {
	cfg := DefaultConfig()
	fwd := NewCallbackForwarder(func(Block) error { return nil })

	rt, err := NewRuntime(cfg, WithForwarder(fwd), WithVerbose(1))
	require.NoError(t, err)
	assert.Equal(t, relay.Idle, rt.State())
}

func TestNewRuntimeRejectsBadStreams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SeedLink.Streams = "badentry"

	_, err := NewRuntime(cfg)
	assert.Error(t, err)
}
