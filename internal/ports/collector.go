package ports

import (
	"context"
	"errors"
)

// PacketKind discriminates the units yielded by a Collector. Only data
// packets enter the decode/transform path; the other kinds are observed
// for logging and otherwise ignored.
type PacketKind int

const (
	PacketData PacketKind = iota
	PacketKeepalive
	PacketInfo
	PacketInfoTerm
)

func (k PacketKind) String() string {
	switch k {
	case PacketData:
		return "data"
	case PacketKeepalive:
		return "keepalive"
	case PacketInfo:
		return "info"
	case PacketInfoTerm:
		return "info-term"
	}
	return "unknown"
}

// Packet is one unit pulled from the subscription source.
type Packet struct {
	Kind     PacketKind
	Sequence int
	Payload  []byte
}

// ErrSessionEnded is returned by Collect when the upstream session has
// terminated cleanly and no further packets will be yielded.
var ErrSessionEnded = errors.New("upstream session ended")

// Collector maintains the session with the real-time subscription
// source. Implementations are driven from a single goroutine.
type Collector interface {
	// Resume primes the session with a recovered read position. It must
	// be called before Open, if at all.
	Resume(state *SessionState)

	// Open establishes the session and negotiates the stream selection.
	Open(ctx context.Context) error

	// Collect blocks until a packet is available, the context is
	// cancelled, or the session ends (ErrSessionEnded).
	Collect(ctx context.Context) (*Packet, error)

	// State snapshots the current read position for checkpointing.
	State() *SessionState

	Close() error
}
