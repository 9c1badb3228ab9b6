package ports

import "time"

// Policy carries the relay's timing and cadence knobs. It is resolved
// once at startup and passed by reference; nothing mutates it afterwards.
type Policy struct {
	// StateInterval is the number of forwarded packets between
	// checkpoint saves. Zero disables cadence-based saves.
	StateInterval int

	// ReconnectDelay is the fixed backoff between downstream
	// reconnection attempts.
	ReconnectDelay time.Duration

	// NetworkDelay is the pause before re-opening the upstream session
	// after a network failure.
	NetworkDelay time.Duration

	// NetworkTimeout is how long the upstream session may stay silent
	// before it is considered dead and re-opened.
	NetworkTimeout time.Duration

	// KeepAlive is the idle interval after which a heartbeat request is
	// sent upstream. Zero disables heartbeats.
	KeepAlive time.Duration
}
