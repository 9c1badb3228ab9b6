package slscale

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackForwarder(t *testing.T) {
	var got []Block
	fwd := NewCallbackForwarder(func(b Block) error {
		got = append(got, b)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, fwd.Connect(ctx))
	assert.True(t, fwd.Writable())
	assert.True(t, fwd.Live())

	start := time.Now()
	end := start.Add(time.Second)
	require.NoError(t, fwd.Write(ctx, "NZ_WEL_10_HHT/MSEED", start, end, []byte{1, 2, 3}))

	require.Len(t, got, 1)
	assert.Equal(t, "NZ_WEL_10_HHT/MSEED", got[0].StreamID)
	assert.Equal(t, []byte{1, 2, 3}, got[0].Payload)
	assert.True(t, start.Equal(got[0].Start))
	assert.True(t, end.Equal(got[0].End))

	require.NoError(t, fwd.Disconnect())
	assert.False(t, fwd.Live())
}

func TestCallbackForwarderNilHandler(t *testing.T) {
	fwd := NewCallbackForwarder(nil)
	err := fwd.Write(context.Background(), "X/MSEED", time.Now(), time.Now(), nil)
	assert.Error(t, err)
}

func TestChannelForwarder(t *testing.T) {
	fwd, blocks, done := NewChannelForwarder(2)
	defer done()

	ctx := context.Background()
	require.NoError(t, fwd.Connect(ctx))
	require.NoError(t, fwd.Write(ctx, "A/MSEED", time.Now(), time.Now(), []byte{1}))
	require.NoError(t, fwd.Write(ctx, "B/MSEED", time.Now(), time.Now(), []byte{2}))

	first := <-blocks
	second := <-blocks
	assert.Equal(t, "A/MSEED", first.StreamID)
	assert.Equal(t, "B/MSEED", second.StreamID)
}

func TestChannelForwarderClosed(t *testing.T) {
	fwd, blocks, done := NewChannelForwarder(0)
	done()

	err := fwd.Write(context.Background(), "A/MSEED", time.Now(), time.Now(), nil)
	assert.ErrorIs(t, err, ErrChannelForwarderClosed)

	_, open := <-blocks
	assert.False(t, open)

	// closing twice is safe
	done()
}

func TestChannelForwarderCancelled(t *testing.T) {
	fwd, _, done := NewChannelForwarder(0)
	defer done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fwd.Write(ctx, "A/MSEED", time.Now(), time.Now(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
