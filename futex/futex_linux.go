//go:build linux

package futex

import (
	"fmt"
	"math"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	futexWaitPrivate = 128 // FUTEX_WAIT | FUTEX_PRIVATE_FLAG
	futexWakePrivate = 129 // FUTEX_WAKE | FUTEX_PRIVATE_FLAG
)

func wait(addr *atomic.Uint32, expected uint32) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWaitPrivate,
		uintptr(expected),
		0, // без таймаута
		0,
		0,
	)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR:
		// EAGAIN - значение уже не совпало, EINTR - прервано сигналом
		return nil
	default:
		return fmt.Errorf("futex wait: %w", errno)
	}
}

func wake(addr *atomic.Uint32, n int) error {
	if n < 0 {
		n = math.MaxInt32
	}
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWakePrivate,
		uintptr(n),
		0,
		0,
		0,
	)
	if errno != 0 {
		return fmt.Errorf("futex wake: %w", errno)
	}
	return nil
}
