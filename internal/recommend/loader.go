package recommend

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Loader builds an Engine at most once. The first Get runs the open function; every other
// caller, concurrent or later, waits for and receives that same result. A failed load is
// not retried, and neither is one whose open function panicked.
type Loader struct {
	open func(ctx context.Context) (*Engine, error)

	once   sync.Once
	engine *Engine
	err    error
	ready  atomic.Bool
}

// NewLoader returns a Loader that builds its engine with open.
func NewLoader(open func(ctx context.Context) (*Engine, error)) *Loader {
	return &Loader{open: open}
}

// Get returns the engine, loading it on first use with ctx.
func (l *Loader) Get(ctx context.Context) (*Engine, error) {
	l.once.Do(func() {
		defer func() {
			if r := recover(); r != nil {
				l.engine, l.err = nil, fmt.Errorf("load engine: panic: %v", r)
			}
			l.ready.Store(l.err == nil)
		}()
		l.engine, l.err = l.open(ctx)
	})
	return l.engine, l.err
}

// Ready reports whether a load has completed successfully.
func (l *Loader) Ready() bool {
	return l.ready.Load()
}
