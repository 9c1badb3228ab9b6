package slscale

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozym/slscale/internal/clock"
)

func TestFacadeOptions(t *testing.T) {
	cfg := DefaultConfig()

	fwd := NewCallbackForwarder(func(Block) error { return nil })
	var clk Clock = clock.Fake(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))

	rt, err := NewRuntime(cfg, WithForwarder(fwd), WithClock(clk), WithVerbose(1))
	require.NoError(t, err)
	assert.NotNil(t, rt)
}
