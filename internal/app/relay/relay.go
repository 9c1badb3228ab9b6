// Package relay drives the live pipeline: collect, decode, transform,
// re-encode, forward, checkpoint.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ozym/slscale/internal/adapters/observability"
	"github.com/ozym/slscale/internal/clock"
	"github.com/ozym/slscale/internal/ports"
)

// State is the relay's lifecycle phase.
type State int

const (
	Idle State = iota
	Connecting
	Streaming
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// streamSuffix identifies the payload encoding in downstream stream IDs.
const streamSuffix = "/MSEED"

var (
	// errAbandoned marks a record given up on because shutdown was
	// requested mid-retry. Not an error condition; the packet is lost.
	errAbandoned = errors.New("record abandoned on shutdown")

	// errEmit marks a failure writing one record's output; the record
	// is abandoned and the stream continues.
	errEmit = errors.New("record emit failed")
)

// Options wires the relay's collaborators. Collector, Transformer,
// Decoder, Observability and Clock are required; a nil Forwarder sends
// transformed blocks to Output instead of a replication endpoint.
type Options struct {
	Collector     ports.Collector
	Forwarder     ports.Forwarder
	Transformer   ports.Transformer
	Decoder       ports.Decoder
	Checkpoints   ports.CheckpointStore
	Policy        ports.Policy
	Observability ports.Observability
	Clock         clock.Clock
	Output        io.Writer
}

// Relay is the single-threaded control loop. All collaborator access
// happens from the goroutine running Run; no locking is required.
type Relay struct {
	collector   ports.Collector
	forwarder   ports.Forwarder
	transformer ports.Transformer
	decoder     ports.Decoder
	checkpoints ports.CheckpointStore
	policy      ports.Policy
	obs         ports.Observability
	clk         clock.Clock
	out         io.Writer

	state   State
	counter int
}

// New validates the wiring and returns an idle relay.
func New(opts Options) (*Relay, error) {
	if opts.Collector == nil {
		return nil, fmt.Errorf("relay: collector is required")
	}
	if opts.Transformer == nil {
		return nil, fmt.Errorf("relay: transformer is required")
	}
	if opts.Decoder == nil {
		return nil, fmt.Errorf("relay: decoder is required")
	}
	if opts.Observability == nil {
		return nil, fmt.Errorf("relay: observability is required")
	}
	if opts.Forwarder == nil && opts.Output == nil {
		return nil, fmt.Errorf("relay: either a forwarder or an output writer is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	return &Relay{
		collector:   opts.Collector,
		forwarder:   opts.Forwarder,
		transformer: opts.Transformer,
		decoder:     opts.Decoder,
		checkpoints: opts.Checkpoints,
		policy:      opts.Policy,
		obs:         opts.Observability,
		clk:         opts.Clock,
		out:         opts.Output,
	}, nil
}

// State reports the current lifecycle phase.
func (r *Relay) State() State { return r.state }

// Run connects downstream first (so a missing write permission fails
// fast), recovers the checkpoint, opens the upstream session and
// streams until the context is cancelled or the session ends. Startup
// failures are returned; anything after Streaming is entered shuts the
// relay down cleanly and returns nil.
func (r *Relay) Run(ctx context.Context) error {
	r.state = Connecting

	if r.forwarder != nil {
		if err := r.forwarder.Connect(ctx); err != nil {
			return fmt.Errorf("relay: downstream connect: %w", err)
		}
		if !r.forwarder.Writable() {
			r.forwarder.Disconnect()
			return fmt.Errorf("relay: downstream server is non-writable")
		}
	}

	if r.checkpoints != nil {
		state, err := r.checkpoints.Recover()
		if err != nil {
			r.obs.LogInfo("no checkpoint recovered, starting from live position",
				ports.Field{Key: "reason", Value: err.Error()})
		} else {
			r.collector.Resume(state)
		}
	}

	if err := r.collector.Open(ctx); err != nil {
		if r.forwarder != nil && r.forwarder.Live() {
			r.forwarder.Disconnect()
		}
		return fmt.Errorf("relay: upstream open: %w", err)
	}

	r.state = Streaming
	r.stream(ctx)

	r.state = Draining
	r.drain(ctx)

	r.state = Terminated
	return nil
}

// stream is the Streaming phase loop. The shutdown flag is consulted at
// the top of each iteration, not preemptively.
func (r *Relay) stream(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		pkt, err := r.collector.Collect(ctx)
		if err != nil {
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			case errors.Is(err, ports.ErrSessionEnded):
				r.obs.LogInfo("upstream session ended")
			default:
				r.obs.LogError("upstream collect failed", err)
			}
			return
		}
		r.obs.IncCounter(observability.MetricPacketsCollected, 1)

		switch pkt.Kind {
		case ports.PacketData:
			if err := r.process(ctx, pkt); err != nil {
				r.obs.LogError("record packing failed", err)
				return
			}
		default:
			r.obs.LogDebug("control packet", ports.Field{Key: "kind", Value: pkt.Kind.String()})
		}
	}
}

// process handles one data packet: decode, transform, re-encode,
// forward, advance the checkpoint counter. Per-record failures abandon
// the record and return nil; only encoder failures are fatal for the
// stream.
func (r *Relay) process(ctx context.Context, pkt *ports.Packet) error {
	rec, err := r.decoder.Decode(pkt.Payload)
	if err != nil {
		r.obs.IncCounter(observability.MetricDecodeErrors, 1)
		r.obs.LogError("error parsing record", err,
			ports.Field{Key: "sequence", Value: pkt.Sequence})
		return nil
	}
	r.obs.LogDebug("record",
		ports.Field{Key: "source", Value: rec.SrcName()},
		ports.Field{Key: "samples", Value: rec.SampleCount},
		ports.Field{Key: "start", Value: rec.StartTime})

	began := r.clk.Now()
	packed, err := r.transformer.Process(rec, func(block []byte) error {
		return r.emit(ctx, block)
	})
	if err != nil {
		if errors.Is(err, errAbandoned) {
			return nil
		}
		if errors.Is(err, errEmit) {
			r.obs.LogError("record abandoned", err)
			return nil
		}
		return err
	}
	if packed == 0 {
		r.obs.IncCounter(observability.MetricRecordsDropped, 1)
		return nil
	}

	r.obs.ObserveLatency(observability.MetricForwardLatency,
		r.clk.Now().Sub(began).Seconds())
	r.obs.IncCounter(observability.MetricRecordsForwarded, 1)

	r.counter++
	if r.checkpoints != nil && r.policy.StateInterval > 0 && r.counter >= r.policy.StateInterval {
		r.persist()
		r.counter = 0
	}
	return nil
}

// emit sends one encoded block downstream, or writes it to the output
// stream when no forwarder is configured.
func (r *Relay) emit(ctx context.Context, block []byte) error {
	if r.forwarder == nil {
		if _, err := r.out.Write(block); err != nil {
			return fmt.Errorf("%w: %w", errEmit, err)
		}
		return nil
	}

	// The packed block carries the authoritative header; re-parse it for
	// the stream identity and time window the endpoint indexes on.
	rec, err := r.decoder.Decode(block)
	if err != nil {
		return fmt.Errorf("%w: %w", errEmit, err)
	}
	return r.forward(ctx, rec.SrcName()+streamSuffix, rec.StartTime, rec.EndTime(), block)
}

// drain performs the final checkpoint (only on shutdown-by-signal) and
// closes both sessions, downstream first.
func (r *Relay) drain(ctx context.Context) {
	r.obs.LogInfo("stopping")

	if r.checkpoints != nil && ctx.Err() != nil {
		r.persist()
	}
	if r.forwarder != nil && r.forwarder.Live() {
		r.forwarder.Disconnect()
	}
	r.collector.Close()

	r.obs.LogInfo("terminated")
}

func (r *Relay) persist() {
	if err := r.checkpoints.Persist(r.collector.State()); err != nil {
		r.obs.LogError("checkpoint save failed", err)
		return
	}
	r.obs.IncCounter(observability.MetricCheckpointSaves, 1)
}
