package mutex

import (
	"sync/atomic"

	"gitlab.com/slon/syncprim/futex"
)

// Locker is a held Mutex guard that a Condvar can release and re-acquire.
// It is implemented by *Guard[T].
type Locker interface {
	heldLock() *lockState
}

// Condvar is a condition variable for goroutines waiting on a Mutex.
// The zero value is ready to use.
type Condvar struct {
	counter    atomic.Uint32
	numWaiters atomic.Uint32
}

// NewCondvar returns a new Condvar.
func NewCondvar() *Condvar {
	return &Condvar{}
}

// Wait releases the mutex held by g, suspends the calling goroutine until
// NotifyOne or NotifyAll, and locks the mutex again before returning. g is
// held again on return.
//
// Wait can return without a notification, so it is called in a loop:
//
//	g := m.Lock()
//	for !condition(g.Value()) {
//		cv.Wait(g)
//	}
func (c *Condvar) Wait(g Locker) {
	l := g.heldLock()
	c.numWaiters.Add(1)

	// Читаем счётчик до разблокировки: notify после этого момента не потеряется
	counter := c.counter.Load()
	l.unlock()

	futex.Wait(&c.counter, counter)

	c.numWaiters.Add(^uint32(0))
	l.lock()
}

// NotifyOne wakes one goroutine waiting on c, if there is any.
func (c *Condvar) NotifyOne() {
	if c.numWaiters.Load() > 0 {
		c.counter.Add(1)
		futex.WakeOne(&c.counter)
	}
}

// NotifyAll wakes all goroutines waiting on c.
func (c *Condvar) NotifyAll() {
	if c.numWaiters.Load() > 0 {
		c.counter.Add(1)
		futex.WakeAll(&c.counter)
	}
}
