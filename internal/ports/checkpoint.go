package ports

import "time"

// StreamPosition is the resumable read position of one subscribed
// stream.
type StreamPosition struct {
	Network  string    `yaml:"network"`
	Station  string    `yaml:"station"`
	Sequence int       `yaml:"sequence"`
	Time     time.Time `yaml:"time"`
}

// SessionState is the subscription source's resumable position plus
// session metadata. It is owned by the collector and persisted by the
// checkpoint store; the relay loop only hands it between the two.
type SessionState struct {
	Address   string           `yaml:"address"`
	Streams   []StreamPosition `yaml:"streams"`
	UpdatedAt time.Time        `yaml:"updated"`
}

// Position returns the stored position for a stream, if any.
func (s *SessionState) Position(network, station string) (StreamPosition, bool) {
	if s == nil {
		return StreamPosition{}, false
	}
	for _, p := range s.Streams {
		if p.Network == network && p.Station == station {
			return p, true
		}
	}
	return StreamPosition{}, false
}

// Latest returns the most recently recorded position across all
// streams. It is the resume point for sessions where packets from many
// streams share a single sequence space.
func (s *SessionState) Latest() (StreamPosition, bool) {
	if s == nil || len(s.Streams) == 0 {
		return StreamPosition{}, false
	}
	best := s.Streams[0]
	for _, p := range s.Streams[1:] {
		if p.Time.After(best.Time) {
			best = p
		}
	}
	return best, true
}

// Update records a new position for a stream, inserting it if needed.
func (s *SessionState) Update(pos StreamPosition) {
	for i := range s.Streams {
		if s.Streams[i].Network == pos.Network && s.Streams[i].Station == pos.Station {
			s.Streams[i] = pos
			return
		}
	}
	s.Streams = append(s.Streams, pos)
}

// CheckpointStore persists and recovers the session state. Recover and
// Persist are never called concurrently; the relay loop is
// single-threaded so the store has no locking responsibility.
type CheckpointStore interface {
	Recover() (*SessionState, error)
	Persist(state *SessionState) error
}
