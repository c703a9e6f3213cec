package auth

import (
	"sync"

	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/models"
)

// Event is the kind of auth state transition delivered to listeners.
type Event string

const (
	EventSignedIn  Event = "SIGNED_IN"
	EventSignedOut Event = "SIGNED_OUT"
)

// Listener receives every state change. session is nil on sign-out.
type Listener func(event Event, session *models.Session)

type listenerEntry struct {
	id uint64
	fn Listener
}

// registry is the ordered set of listeners of one simulator.
type registry struct {
	mu      sync.Mutex
	next    uint64
	entries []listenerEntry
	logger  *zap.Logger
}

func (r *registry) add(fn Listener) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.entries = append(r.entries, listenerEntry{id: r.next, fn: fn})
	return r.next
}

func (r *registry) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.id == id {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			return
		}
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// notify calls every listener in registration order. The lock is released
// first so a listener may subscribe or unsubscribe.
func (r *registry) notify(event Event, session *models.Session) {
	r.mu.Lock()
	snapshot := make([]listenerEntry, len(r.entries))
	copy(snapshot, r.entries)
	r.mu.Unlock()

	for _, e := range snapshot {
		r.call(e, event, session)
	}
}

func (r *registry) call(e listenerEntry, event Event, session *models.Session) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("auth listener panicked", zap.Uint64("listener", e.id), zap.Any("panic", p))
		}
	}()
	e.fn(event, session)
}

// Subscription is the handle returned by OnAuthStateChange.
type Subscription struct {
	id       uint64
	registry *registry
	once     sync.Once
}

// Unsubscribe stops delivery to the listener. It is safe to call more than
// once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.registry.remove(s.id) })
}
