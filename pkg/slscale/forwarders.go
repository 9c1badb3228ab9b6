package slscale

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ozym/slscale/internal/ports"
)

// ErrChannelForwarderClosed is returned when a channel forwarder is
// written to after being closed.
var ErrChannelForwarderClosed = errors.New("slscale: channel forwarder closed")

// Block is one forwarded transport block with its stream identity and
// time window.
type Block struct {
	StreamID string
	Start    time.Time
	End      time.Time
	Payload  []byte
}

// ForwardFunc receives forwarded blocks in arrival order.
type ForwardFunc func(Block) error

// NewCallbackForwarder adapts a function into a ports.Forwarder so
// embedders can capture relay output without defining structs.
func NewCallbackForwarder(fn ForwardFunc) ports.Forwarder {
	return &callbackForwarder{fn: fn}
}

// NewChannelForwarder exposes forwarded blocks via a channel; it
// returns the forwarder, the read-only channel, and a close function
// the caller should invoke during shutdown.
func NewChannelForwarder(buffer int) (ports.Forwarder, <-chan Block, func()) {
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Block, buffer)
	f := &channelForwarder{ch: ch, closed: make(chan struct{})}
	return f, ch, func() { f.close() }
}

type callbackForwarder struct {
	fn   ForwardFunc
	live bool
}

func (f *callbackForwarder) Connect(context.Context) error { f.live = true; return nil }
func (f *callbackForwarder) Writable() bool                { return true }
func (f *callbackForwarder) Live() bool                    { return f.live }
func (f *callbackForwarder) Disconnect() error             { f.live = false; return nil }

func (f *callbackForwarder) Write(_ context.Context, streamID string, start, end time.Time, payload []byte) error {
	if f.fn == nil {
		return fmt.Errorf("slscale: callback forwarder: nil handler")
	}
	return f.fn(Block{StreamID: streamID, Start: start, End: end, Payload: payload})
}

type channelForwarder struct {
	ch     chan Block
	closed chan struct{}
	once   sync.Once
	live   bool
}

func (f *channelForwarder) Connect(context.Context) error { f.live = true; return nil }
func (f *channelForwarder) Writable() bool                { return true }
func (f *channelForwarder) Live() bool                    { return f.live }
func (f *channelForwarder) Disconnect() error             { f.live = false; return nil }

func (f *channelForwarder) Write(ctx context.Context, streamID string, start, end time.Time, payload []byte) error {
	block := Block{StreamID: streamID, Start: start, End: end, Payload: payload}
	select {
	case <-f.closed:
		return ErrChannelForwarderClosed
	default:
	}
	select {
	case <-f.closed:
		return ErrChannelForwarderClosed
	case <-ctx.Done():
		return ctx.Err()
	case f.ch <- block:
		return nil
	}
}

func (f *channelForwarder) close() {
	f.once.Do(func() {
		close(f.closed)
		close(f.ch)
	})
}
