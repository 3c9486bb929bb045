// Package rwmutex implements a futex-based reader/writer lock that keeps
// new readers out once a writer is waiting.
//
// RWMutex is the bare lock. RwLock wraps a value and hands out guards.
package rwmutex

// RwLock is a reader/writer lock that owns the value it guards.
// The zero value is an unlocked lock holding the zero T.
type RwLock[T any] struct {
	rw    RWMutex
	value T
}

// NewRwLock creates an unlocked RwLock holding value.
func NewRwLock[T any](value T, opts ...Option) *RwLock[T] {
	l := &RwLock[T]{value: value}
	for _, opt := range opts {
		opt(&l.rw)
	}
	return l
}

// Read locks l for reading.
func (l *RwLock[T]) Read() *ReadGuard[T] {
	l.rw.RLock()
	return &ReadGuard[T]{l: l}
}

// TryRead is the non-blocking form of Read.
func (l *RwLock[T]) TryRead() (*ReadGuard[T], bool) {
	if !l.rw.TryRLock() {
		return nil, false
	}
	return &ReadGuard[T]{l: l}, true
}

// Write locks l for writing.
func (l *RwLock[T]) Write() *WriteGuard[T] {
	l.rw.Lock()
	return &WriteGuard[T]{l: l}
}

// TryWrite is the non-blocking form of Write.
func (l *RwLock[T]) TryWrite() (*WriteGuard[T], bool) {
	if !l.rw.TryLock() {
		return nil, false
	}
	return &WriteGuard[T]{l: l}, true
}

// ReadGuard is shared access to an RwLock's value.
type ReadGuard[T any] struct {
	l *RwLock[T]
}

// Value returns the guarded value. Readers share it, so it must not be
// modified through this pointer.
func (g *ReadGuard[T]) Value() *T {
	if g.l == nil {
		panic("rwmutex: use of released read guard")
	}
	return &g.l.value
}

// Unlock releases the read lock.
func (g *ReadGuard[T]) Unlock() {
	if g.l == nil {
		panic("rwmutex: use of released read guard")
	}
	l := g.l
	g.l = nil
	l.rw.RUnlock()
}

// WriteGuard is exclusive access to an RwLock's value.
type WriteGuard[T any] struct {
	l *RwLock[T]
}

// Value returns the guarded value.
func (g *WriteGuard[T]) Value() *T {
	if g.l == nil {
		panic("rwmutex: use of released write guard")
	}
	return &g.l.value
}

// Unlock releases the write lock.
func (g *WriteGuard[T]) Unlock() {
	if g.l == nil {
		panic("rwmutex: use of released write guard")
	}
	l := g.l
	g.l = nil
	l.rw.Unlock()
}
