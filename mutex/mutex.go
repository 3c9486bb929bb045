// Package mutex provides a futex-based mutual exclusion lock that owns the
// value it guards, and a condition variable that works with its guards.
package mutex

import (
	"sync/atomic"

	"gitlab.com/slon/syncprim/futex"
)

const (
	unlocked        uint32 = 0
	lockedNoWaiters uint32 = 1
	lockedWaiters   uint32 = 2
)

// spinLimit bounds the busy wait before a contended Lock goes to sleep.
const spinLimit = 100

// lockState is the three-state futex word behind a Mutex.
type lockState struct {
	// 0 - свободен, 1 - занят без ожидающих, 2 - занят и есть ожидающие
	state atomic.Uint32
}

func (l *lockState) lock() {
	if !l.state.CompareAndSwap(unlocked, lockedNoWaiters) {
		l.lockContended()
	}
}

func (l *lockState) tryLock() bool {
	return l.state.CompareAndSwap(unlocked, lockedNoWaiters)
}

func (l *lockState) lockContended() {
	// Короткие критические секции переживаем без системного вызова
	spin := 0
	for l.state.Load() == lockedNoWaiters && spin < spinLimit {
		spin++
	}

	if l.state.CompareAndSwap(unlocked, lockedNoWaiters) {
		return
	}

	for l.state.Swap(lockedWaiters) != unlocked {
		futex.Wait(&l.state, lockedWaiters)
	}
}

func (l *lockState) unlock() {
	switch l.state.Swap(unlocked) {
	case unlocked:
		panic("mutex: unlock of unlocked mutex")
	case lockedWaiters:
		// Будим только если кто-то ждёт
		futex.WakeOne(&l.state)
	}
}

// A Mutex is a mutual exclusion lock around a value of type T.
// The zero value for a Mutex is an unlocked mutex holding the zero T.
//
// The value may only be accessed through a Guard returned by Lock or TryLock.
type Mutex[T any] struct {
	l     lockState
	value T
}

// New creates an unlocked Mutex holding value.
func New[T any](value T) *Mutex[T] {
	return &Mutex[T]{value: value}
}

// Lock locks m. If the lock is already in use, the calling goroutine spins
// briefly and then blocks until the mutex is available.
func (m *Mutex[T]) Lock() *Guard[T] {
	m.l.lock()
	return &Guard[T]{m: m}
}

// TryLock tries to lock m without blocking and reports whether it succeeded.
func (m *Mutex[T]) TryLock() (*Guard[T], bool) {
	if !m.l.tryLock() {
		return nil, false
	}
	return &Guard[T]{m: m}, true
}

// Guard is the witness of exclusive access to a Mutex's value.
type Guard[T any] struct {
	m *Mutex[T]
}

func (g *Guard[T]) mutex() *Mutex[T] {
	if g.m == nil {
		panic("mutex: use of released guard")
	}
	return g.m
}

// Value returns the guarded value. The pointer must not be used after Unlock.
func (g *Guard[T]) Value() *T {
	return &g.mutex().value
}

// Unlock releases the mutex. The guard is unusable afterwards.
func (g *Guard[T]) Unlock() {
	m := g.mutex()
	g.m = nil
	m.l.unlock()
}

func (g *Guard[T]) heldLock() *lockState {
	return &g.mutex().l
}
