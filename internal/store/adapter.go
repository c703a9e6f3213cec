package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/evently-demo/backend/internal/models"
)

// SessionKey is the name (before prefixing) of the singleton session slot.
const SessionKey = "session"

// WriteResult tells a caller whether a logically applied change also reached
// the medium.
type WriteResult struct {
	Persisted bool
	Err       error
}

// Info describes which namespaced keys currently hold data.
type Info struct {
	HasDemoData bool     `json:"has_demo_data"`
	DemoKeys    []string `json:"demo_keys"`
}

// Adapter is the only component that touches the Medium.
type Adapter struct {
	medium Medium
	prefix string
	logger *zap.Logger

	// mu serializes read-modify-write cycles of the mutation engines.
	mu sync.Mutex
}

// NewAdapter wraps medium, namespacing every key with prefix.
func NewAdapter(medium Medium, prefix string, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if medium == nil {
		medium = UnavailableMedium{}
	}
	return &Adapter{medium: medium, prefix: prefix, logger: logger}
}

// Key returns the physical key for a logical name.
func (a *Adapter) Key(name string) string {
	return a.prefix + name
}

// AllKeys returns the logical names of every key the engine owns.
func AllKeys() []string {
	names := []string{SessionKey}
	for _, t := range models.Tables {
		names = append(names, string(t))
	}
	return names
}

// ReadInto decodes the JSON stored under name into dst and reports whether it
// did. Absence, corrupt JSON and medium failures all return false and leave
// dst untouched.
func (a *Adapter) ReadInto(ctx context.Context, name string, dst any) bool {
	key := a.Key(name)
	raw, ok, err := a.medium.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			a.logger.Warn("storage read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		a.logger.Warn("stored value is not valid JSON", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Read returns the value stored under name, or fallback when it is absent,
// unparsable or the medium is unavailable.
func Read[T any](ctx context.Context, a *Adapter, name string, fallback T) T {
	var v T
	if !a.ReadInto(ctx, name, &v) {
		return fallback
	}
	return v
}

// Present reports whether name holds a value in the medium.
func (a *Adapter) Present(ctx context.Context, name string) bool {
	_, ok, err := a.medium.Get(ctx, a.Key(name))
	return err == nil && ok
}

// Write encodes value as JSON and stores it under name. Failures are logged
// and reported through the result, never returned as an error.
func (a *Adapter) Write(ctx context.Context, name string, value any) WriteResult {
	key := a.Key(name)
	raw, err := json.Marshal(value)
	if err != nil {
		a.logger.Error("storage encode failed", zap.String("key", key), zap.Error(err))
		return WriteResult{Err: err}
	}
	if err := a.medium.Set(ctx, key, string(raw)); err != nil {
		if errors.Is(err, ErrUnavailable) {
			a.logger.Debug("storage unavailable, write dropped", zap.String("key", key))
		} else {
			a.logger.Error("storage write failed", zap.String("key", key), zap.Error(err))
		}
		return WriteResult{Err: err}
	}
	return WriteResult{Persisted: true}
}

// Remove deletes name from the medium.
func (a *Adapter) Remove(ctx context.Context, name string) WriteResult {
	key := a.Key(name)
	if err := a.medium.Remove(ctx, key); err != nil {
		if !errors.Is(err, ErrUnavailable) {
			a.logger.Error("storage remove failed", zap.String("key", key), zap.Error(err))
		}
		return WriteResult{Err: err}
	}
	return WriteResult{Persisted: true}
}

// ClearAll removes every collection and the session key.
func (a *Adapter) ClearAll(ctx context.Context) error {
	var errs []error
	for _, name := range AllKeys() {
		if res := a.Remove(ctx, name); res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	a.logger.Info("storage cleared", zap.String("prefix", a.prefix))
	return errors.Join(errs...)
}

// Info probes which of the engine's keys are present.
func (a *Adapter) Info(ctx context.Context) Info {
	info := Info{DemoKeys: []string{}}
	for _, name := range AllKeys() {
		if a.Present(ctx, name) {
			info.DemoKeys = append(info.DemoKeys, a.Key(name))
		}
	}
	info.HasDemoData = len(info.DemoKeys) > 0
	return info
}

// Exclusive runs fn while holding the adapter's write lock.
func (a *Adapter) Exclusive(fn func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn()
}

// Logger returns the adapter's logger for engines built on top of it.
func (a *Adapter) Logger() *zap.Logger {
	return a.logger
}
