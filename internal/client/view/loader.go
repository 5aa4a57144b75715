package view

import (
	"context"
	"sync"
)

// Loader runs fetches for a view and drops results that arrive too late:
// after a newer Load started or after Close.
type Loader[T any] struct {
	fetch func(ctx context.Context) (T, error)

	mu     sync.Mutex
	gen    uint64
	closed bool
}

// NewLoader wraps fetch.
func NewLoader[T any](fetch func(ctx context.Context) (T, error)) *Loader[T] {
	return &Loader[T]{fetch: fetch}
}

// Load calls fetch and hands the outcome to apply if it is still current.
// apply runs with the loader locked and must not call back into it. Load
// reports whether apply ran.
func (l *Loader[T]) Load(ctx context.Context, apply func(T, error)) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.gen++
	gen := l.gen
	l.mu.Unlock()

	v, err := l.fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || gen != l.gen {
		return false
	}
	apply(v, err)
	return true
}

// Close discards every in-flight and future result.
func (l *Loader[T]) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}
