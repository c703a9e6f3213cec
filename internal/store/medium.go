// Package store is the durable key-value adapter every engine reads and
// writes through. A Medium is the physical storage; the Adapter adds JSON
// encoding, key namespacing and the never-fail contract on top of it.
package store

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrUnavailable is returned by a medium that cannot be reached at all.
	ErrUnavailable = errors.New("storage medium unavailable")
	// ErrQuotaExceeded is returned when a write would exceed the medium's quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Medium is a synchronous string-keyed store.
type Medium interface {
	// Get returns the value at key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// MemoryMedium keeps values in process memory. It stands in for the
// origin-scoped storage of a single browser profile.
type MemoryMedium struct {
	mu       sync.RWMutex
	values   map[string]string
	maxBytes int
}

// NewMemoryMedium returns an empty medium without a quota.
func NewMemoryMedium() *MemoryMedium {
	return &MemoryMedium{values: make(map[string]string)}
}

// NewMemoryMediumWithQuota returns a medium that rejects writes once the
// total size of all values would exceed maxBytes.
func NewMemoryMediumWithQuota(maxBytes int) *MemoryMedium {
	return &MemoryMedium{values: make(map[string]string), maxBytes: maxBytes}
}

func (m *MemoryMedium) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryMedium) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxBytes > 0 {
		total := len(value)
		for k, v := range m.values {
			if k != key {
				total += len(v)
			}
		}
		if total > m.maxBytes {
			return ErrQuotaExceeded
		}
	}
	m.values[key] = value
	return nil
}

func (m *MemoryMedium) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}

// Raw sets a value without any quota check. Tests use it to plant corrupt
// data.
func (m *MemoryMedium) Raw(key, value string) {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
}

// UnavailableMedium models an execution context with no storage at all.
type UnavailableMedium struct{}

func (UnavailableMedium) Get(context.Context, string) (string, bool, error) {
	return "", false, ErrUnavailable
}

func (UnavailableMedium) Set(context.Context, string, string) error { return ErrUnavailable }

func (UnavailableMedium) Remove(context.Context, string) error { return ErrUnavailable }
