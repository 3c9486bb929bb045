// Package futex is the wait/wake capability every lock in this module is
// built on: block while a 32-bit word still holds an expected value, and
// wake one or all goroutines blocked on that word.
//
// On Linux this is the futex(2) system call. Elsewhere it is emulated by a
// parking-lot Table keyed by address.
package futex

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Wait blocks while addr holds expected.
//
// Wait may return spuriously, callers must re-check their condition in a loop.
// A notification that changes *addr after the caller read expected is never
// lost: the comparison and the sleep are atomic with respect to WakeOne/WakeAll.
func Wait(addr *atomic.Uint32, expected uint32) {
	// Значение уже поменялось - в ядро не идём
	if addr.Load() != expected {
		return
	}
	waits.Inc()
	if err := wait(addr, expected); err != nil {
		// Для вызывающего это ничем не отличается от ложного пробуждения
		zap.L().Error("futex wait failed", zap.Error(err))
	}
}

// WakeOne wakes at most one goroutine blocked in Wait on addr.
func WakeOne(addr *atomic.Uint32) {
	wakesOne.Inc()
	if err := wake(addr, 1); err != nil {
		zap.L().Error("futex wake failed", zap.Error(err))
	}
}

// WakeAll wakes every goroutine blocked in Wait on addr.
func WakeAll(addr *atomic.Uint32) {
	wakesAll.Inc()
	if err := wake(addr, -1); err != nil {
		zap.L().Error("futex wake failed", zap.Error(err))
	}
}
