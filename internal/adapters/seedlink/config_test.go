package seedlink

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, ":18000", cfg.Address)
	assert.Equal(t, "?TH", cfg.Selectors)
	assert.Equal(t, 30*time.Second, cfg.NetworkDelay)
	assert.Equal(t, 600*time.Second, cfg.NetworkTimeout)
	assert.Zero(t, cfg.KeepAlive)
}

func TestSelectionUniform(t *testing.T) {
	cfg := Config{Selectors: "?TH"}

	streams, uni, err := cfg.selection()
	require.NoError(t, err)
	assert.True(t, uni)
	assert.Empty(t, streams)
}

func TestSelectionStreams(t *testing.T) {
	cfg := Config{Selectors: "?TH", Streams: "NZ_WEL:HHZ HHN, NZ_BFZ"}

	streams, uni, err := cfg.selection()
	require.NoError(t, err)
	assert.False(t, uni)
	require.Len(t, streams, 2)

	assert.Equal(t, "NZ", streams[0].network)
	assert.Equal(t, "WEL", streams[0].station)
	assert.Equal(t, []string{"HHZ", "HHN"}, streams[0].selectors)

	// streams without their own selectors inherit the default
	assert.Equal(t, "BFZ", streams[1].station)
	assert.Equal(t, []string{"?TH"}, streams[1].selectors)
}

func TestSelectionStreamsMalformed(t *testing.T) {
	for _, expr := range []string{"WEL", "_WEL", "NZ_", ","} {
		cfg := Config{Streams: expr}
		_, _, err := cfg.selection()
		assert.Error(t, err, "expression %q", expr)
	}
}

func TestSelectionStreamList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		"# stations of interest\n"+
			"\n"+
			"NZ WEL HHZ HHN\n"+
			"NZ BFZ\n"), 0o644))

	cfg := Config{Selectors: "?TH", StreamList: path}
	streams, uni, err := cfg.selection()
	require.NoError(t, err)
	assert.False(t, uni)
	require.Len(t, streams, 2)
	assert.Equal(t, []string{"HHZ", "HHN"}, streams[0].selectors)
	assert.Equal(t, []string{"?TH"}, streams[1].selectors)
}

func TestSelectionStreamListWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streams.txt")
	require.NoError(t, os.WriteFile(path, []byte("NZ WEL\n"), 0o644))

	cfg := Config{Streams: "NZ_BFZ", StreamList: path}
	streams, _, err := cfg.selection()
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, "WEL", streams[0].station)
}

func TestSelectionStreamListErrors(t *testing.T) {
	cfg := Config{StreamList: filepath.Join(t.TempDir(), "absent.txt")}
	_, _, err := cfg.selection()
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "short.txt")
	require.NoError(t, os.WriteFile(path, []byte("NZ\n"), 0o644))
	cfg = Config{StreamList: path}
	_, _, err = cfg.selection()
	assert.Error(t, err)
}
