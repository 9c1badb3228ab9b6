package ports

import (
	"context"
	"time"
)

// Forwarder maintains the session with the downstream replication
// endpoint. The connection handle is owned exclusively by the
// implementation; callers only drive the connect/write/disconnect
// transitions from a single goroutine.
type Forwarder interface {
	// Connect establishes the session and learns the write permission.
	Connect(ctx context.Context) error

	// Writable reports whether the connected endpoint accepts writes.
	// Only meaningful after a successful Connect.
	Writable() bool

	// Live reports whether a session is currently established.
	Live() bool

	// Write sends one encoded record block for the given stream.
	Write(ctx context.Context, streamID string, start, end time.Time, payload []byte) error

	Disconnect() error
}
