package futex

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

const tableSize = 251

// Table emulates futex wait/wake for platforms without a native facility.
//
// Waiters are kept in buckets hashed by address. The value check in Wait and
// the dequeue in Wake happen under the same bucket lock, so a waker that
// changed the word before calling Wake either finds the waiter queued or the
// waiter sees the new value and does not sleep.
//
// The zero value is ready to use.
type Table struct {
	buckets [tableSize]bucket
}

type bucket struct {
	mu      sync.Mutex
	waiters []*waiter
}

type waiter struct {
	addr *atomic.Uint32
	ch   chan struct{}
}

func (t *Table) bucketFor(addr *atomic.Uint32) *bucket {
	h := uintptr(unsafe.Pointer(addr)) >> 2
	return &t.buckets[h%tableSize]
}

// Wait blocks while addr holds expected, until Wake is called for addr.
func (t *Table) Wait(addr *atomic.Uint32, expected uint32) {
	b := t.bucketFor(addr)
	b.mu.Lock()
	if addr.Load() != expected {
		b.mu.Unlock()
		return
	}
	w := &waiter{addr: addr, ch: make(chan struct{})}
	b.waiters = append(b.waiters, w)
	b.mu.Unlock()

	<-w.ch
}

// Wake wakes up to n waiters blocked on addr in FIFO order, all of them if n
// is negative. It returns the number of waiters woken.
func (t *Table) Wake(addr *atomic.Uint32, n int) int {
	b := t.bucketFor(addr)
	b.mu.Lock()
	defer b.mu.Unlock()

	woken := 0
	kept := b.waiters[:0]
	for _, w := range b.waiters {
		if w.addr == addr && (n < 0 || woken < n) {
			close(w.ch)
			woken++
			continue
		}
		kept = append(kept, w)
	}
	// Обнуляем хвост, чтобы не держать ссылки на разбуженных
	for i := len(kept); i < len(b.waiters); i++ {
		b.waiters[i] = nil
	}
	b.waiters = kept
	return woken
}
