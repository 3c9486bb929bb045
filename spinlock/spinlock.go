// Package spinlock provides a busy-waiting lock for very short critical
// sections.
package spinlock

import (
	"runtime"
	"sync/atomic"
)

// yieldEvery is how many failed attempts a waiter makes before handing its
// processor to another goroutine.
const yieldEvery = 64

// SpinLock guards a value of type T by spinning on a flag.
// The zero value is unlocked.
type SpinLock[T any] struct {
	locked atomic.Bool
	value  T
}

// New creates an unlocked SpinLock holding value.
func New[T any](value T) *SpinLock[T] {
	return &SpinLock[T]{value: value}
}

// Lock spins until the lock is acquired.
func (l *SpinLock[T]) Lock() *Guard[T] {
	for spins := 1; l.locked.Swap(true); spins++ {
		// Держатель мог оказаться на том же P - отдаём процессор
		if spins%yieldEvery == 0 {
			runtime.Gosched()
		}
	}
	return &Guard[T]{l: l}
}

// Guard is exclusive access to a SpinLock's value.
// It must not outlive the lock.
type Guard[T any] struct {
	l *SpinLock[T]
}

// Value returns the guarded value.
func (g *Guard[T]) Value() *T {
	if g.l == nil {
		panic("spinlock: use of released guard")
	}
	return &g.l.value
}

// Unlock releases the lock.
func (g *Guard[T]) Unlock() {
	if g.l == nil {
		panic("spinlock: use of released guard")
	}
	l := g.l
	g.l = nil
	l.locked.Store(false)
}
