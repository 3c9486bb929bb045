// Package waitgroup implements a WaitGroup on the futex wait/wake capability.
package waitgroup

import (
	"sync/atomic"

	"gitlab.com/slon/syncprim/futex"
)

// A WaitGroup waits for a collection of goroutines to finish.
// The main goroutine calls Add to set the number of
// goroutines to wait for. Then each of the goroutines
// runs and calls Done when finished. At the same time,
// Wait can be used to block until all goroutines have finished.
//
// The zero value is ready to use.
type WaitGroup struct {
	cnt atomic.Int64
	// Поколение: растёт каждый раз, когда счётчик доходит до нуля
	gen atomic.Uint32
}

// New creates WaitGroup.
func New() *WaitGroup {
	return &WaitGroup{}
}

// Add adds delta, which may be negative, to the WaitGroup counter.
// If the counter becomes zero, all goroutines blocked on Wait are released.
// If the counter goes negative, Add panics.
//
// Note that calls with a positive delta that occur when the counter is zero
// must happen before a Wait. Calls with a negative delta, or calls with a
// positive delta that start when the counter is greater than zero, may happen
// at any time.
// Typically this means the calls to Add should execute before the statement
// creating the goroutine or other event to be waited for.
func (wg *WaitGroup) Add(delta int) {
	if delta == 0 {
		return
	}
	cnt := wg.cnt.Add(int64(delta))
	if cnt < 0 {
		panic("negative WaitGroup counter")
	}
	if cnt == 0 {
		wg.gen.Add(1)
		futex.WakeAll(&wg.gen)
	}
}

// Done decrements the WaitGroup counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Go calls f in a new goroutine and adds that task to the WaitGroup.
// When f returns, the task is removed from the WaitGroup.
func (wg *WaitGroup) Go(f func()) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		f()
	}()
}

// Wait blocks until the WaitGroup counter is zero.
func (wg *WaitGroup) Wait() {
	for {
		// Поколение читаем до счётчика: обнуление после этого разбудит нас
		gen := wg.gen.Load()
		if wg.cnt.Load() == 0 {
			return
		}
		futex.Wait(&wg.gen, gen)
	}
}
