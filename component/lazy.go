package component

import (
	"context"
	"fmt"
	"sync"
)

// Lazy loads a value on first use and keeps it until closed. A failed load
// is retried on the next Get.
type Lazy[T any] struct {
	name   string
	load   func(ctx context.Context) (T, error)
	closer func(T) error

	mu      sync.RWMutex
	value   T
	loaded  bool
	lastErr error
}

// NewLazy creates a lazy value named name.
func NewLazy[T any](name string, load func(ctx context.Context) (T, error)) *Lazy[T] {
	return &Lazy[T]{name: name, load: load}
}

// WithCloser sets the function releasing a loaded value.
func (l *Lazy[T]) WithCloser(fn func(T) error) *Lazy[T] {
	l.closer = fn
	return l
}

// Name returns the name of the value.
func (l *Lazy[T]) Name() string { return l.name }

// Get returns the value, loading it first if needed.
func (l *Lazy[T]) Get(ctx context.Context) (T, error) {
	l.mu.RLock()
	if l.loaded {
		v := l.value
		l.mu.RUnlock()
		return v, nil
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.loaded {
		return l.value, nil
	}
	var zero T
	if l.load == nil {
		return zero, fmt.Errorf("%s: no loader", l.name)
	}
	v, err := l.load(ctx)
	if err != nil {
		l.lastErr = err
		return zero, fmt.Errorf("load %s: %w", l.name, err)
	}
	l.value, l.loaded, l.lastErr = v, true, nil
	return v, nil
}

// Loaded reports whether the value is loaded.
func (l *Lazy[T]) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Health reports unhealthy after a failed load, degraded while not yet
// loaded and healthy once loaded.
func (l *Lazy[T]) Health(ctx context.Context) Health {
	l.mu.RLock()
	defer l.mu.RUnlock()
	switch {
	case l.loaded:
		return Health{Name: l.name, Status: StatusHealthy}
	case l.lastErr != nil:
		return Health{Name: l.name, Status: StatusUnhealthy, Message: l.lastErr.Error()}
	default:
		return Health{Name: l.name, Status: StatusDegraded, Message: "not loaded"}
	}
}

// Close releases the loaded value. The next Get loads it again.
func (l *Lazy[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.loaded {
		return nil
	}
	var err error
	if l.closer != nil {
		err = l.closer(l.value)
	}
	var zero T
	l.value, l.loaded = zero, false
	return err
}
