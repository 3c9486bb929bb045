// Package oneshot implements single-message channels.
//
// Channel is split into a Sender and a Receiver that each work exactly once;
// the receiver parks until the sender hands the message over. Slot is the
// same handoff with runtime flags instead of split halves, and NewShared
// puts a Slot behind reference-counted halves.
//
// A message that was sent but never received is released when the channel
// is torn down: if it implements arc.Dropper, its Drop method runs.
package oneshot

import (
	"sync/atomic"

	"gitlab.com/slon/syncprim/arc"
	"gitlab.com/slon/syncprim/futex"
)

// Channel carries one message from a Sender to a Receiver.
// The zero value is ready to Split.
type Channel[T any] struct {
	message T
	ready   atomic.Bool
}

// Split resets c and returns its two halves. A message left over from a
// previous round is released. c must not be split again while the halves are
// in use.
func (c *Channel[T]) Split() (*Sender[T], *Receiver[T]) {
	c.Close()
	p := &futex.Parker{}
	return &Sender[T]{ch: c, receiver: p}, &Receiver[T]{ch: c, parker: p}
}

// Close releases a message that was sent but not received.
func (c *Channel[T]) Close() {
	if c.ready.Swap(false) {
		arc.Destroy(&c.message)
	}
}

// Sender is the sending half of a Channel.
type Sender[T any] struct {
	ch       *Channel[T]
	receiver *futex.Parker
}

// Send hands msg to the receiver and wakes it. It panics if called twice.
func (s *Sender[T]) Send(msg T) {
	if s.ch == nil {
		panic("oneshot: can't send more than one message")
	}
	c := s.ch
	s.ch = nil

	c.message = msg
	// Сообщение записано до того, как получатель увидит ready
	c.ready.Store(true)
	s.receiver.Unpark()
}

// Receiver is the receiving half of a Channel. It belongs to the goroutine
// that calls Receive.
type Receiver[T any] struct {
	ch     *Channel[T]
	parker *futex.Parker
}

// Receive blocks until the message arrives and returns it. It panics if
// called twice.
func (r *Receiver[T]) Receive() T {
	if r.ch == nil {
		panic("oneshot: message already received")
	}
	c := r.ch
	r.ch = nil

	// Разбудить могут и без сообщения, поэтому проверяем флаг
	for !c.ready.Swap(false) {
		r.parker.Park()
	}
	msg := c.message
	var zero T
	c.message = zero
	return msg
}
