package oneshot

import (
	"sync/atomic"

	"gitlab.com/slon/syncprim/arc"
	"gitlab.com/slon/syncprim/futex"
)

const (
	slotEmpty uint32 = iota
	slotReady
	slotTaken
)

// Slot is a single-use message cell checked at run time: a second Send
// panics, and so does Receive before the message is ready or after it was
// taken. The zero value is an empty slot.
type Slot[T any] struct {
	message T
	inUse   atomic.Bool
	ready   atomic.Uint32
}

// Send stores msg and marks the slot ready.
func (s *Slot[T]) Send(msg T) {
	if s.inUse.Swap(true) {
		panic("oneshot: can't send more than one message")
	}
	s.message = msg
	s.ready.Store(slotReady)
	futex.WakeAll(&s.ready)
}

// IsReady reports whether a message is waiting to be received.
func (s *Slot[T]) IsReady() bool {
	return s.ready.Load() == slotReady
}

// Wait blocks until a message has been sent.
func (s *Slot[T]) Wait() {
	for s.ready.Load() == slotEmpty {
		futex.Wait(&s.ready, slotEmpty)
	}
}

// Receive takes the message. It panics if no message is available.
func (s *Slot[T]) Receive() T {
	if !s.ready.CompareAndSwap(slotReady, slotTaken) {
		panic("oneshot: no message available")
	}
	msg := s.message
	var zero T
	s.message = zero
	return msg
}

// Drop releases a message that was sent but never received.
func (s *Slot[T]) Drop() {
	if s.ready.CompareAndSwap(slotReady, slotTaken) {
		arc.Destroy(&s.message)
	}
}
