//go:build !linux

package futex

import "sync/atomic"

// Нет системного futex - используем эмуляцию на общей таблице
var emulated Table

func wait(addr *atomic.Uint32, expected uint32) error {
	emulated.Wait(addr, expected)
	return nil
}

func wake(addr *atomic.Uint32, n int) error {
	emulated.Wake(addr, n)
	return nil
}
