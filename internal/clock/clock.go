// Package clock provides an injectable time abstraction so retry and
// heartbeat loops can be driven deterministically in tests.
package clock

import "time"

// Clock is the subset of the time package the relay depends on.
// Production code injects Real(); tests inject a Fake.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) Sleep(d time.Duration)                  { time.Sleep(d) }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
