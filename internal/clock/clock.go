// Package clock abstracts the current time so session expiry and record
// timestamps can be driven deterministically in tests.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time. Production code injects Real(); tests
// inject a Fake.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real returns a Clock backed by time.Now.
func Real() Clock { return realClock{} }

// Fake is a manually advanced clock.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake returns a Fake positioned at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Now returns the fake's current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// Set moves the fake to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}
