package futex

import (
	"math"
	"sync/atomic"
)

const (
	parkerEmpty    uint32 = 0
	parkerNotified uint32 = 1
	parkerParked   uint32 = math.MaxUint32
)

// Parker is a single-owner park/unpark token, the goroutine analogue of
// parking an OS thread.
//
// Only the owning goroutine calls Park; any goroutine may call Unpark. An
// Unpark that happens before Park makes the next Park return immediately.
// Park may also return spuriously, so the owner re-checks its condition.
type Parker struct {
	state atomic.Uint32
}

// Park blocks until Unpark is called, consuming the notification.
func (p *Parker) Park() {
	// notified -> empty: уведомление уже было, выходим сразу
	if p.state.Add(^uint32(0)) == parkerEmpty {
		return
	}
	for {
		Wait(&p.state, parkerParked)
		if p.state.CompareAndSwap(parkerNotified, parkerEmpty) {
			return
		}
	}
}

// Unpark makes the owner's current or next Park return.
func (p *Parker) Unpark() {
	if p.state.Swap(parkerNotified) == parkerParked {
		WakeOne(&p.state)
	}
}
