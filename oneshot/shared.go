package oneshot

import "gitlab.com/slon/syncprim/arc"

// NewShared returns the two halves of a Slot shared through reference
// counting. Each half gives up its reference when used or closed; the slot
// is torn down with the last one, releasing an unreceived message.
func NewShared[T any]() (*SharedSender[T], *SharedReceiver[T]) {
	a := arc.New(&Slot[T]{})
	return &SharedSender[T]{slot: a.Clone()}, &SharedReceiver[T]{slot: a}
}

// SharedSender is the sending half returned by NewShared.
type SharedSender[T any] struct {
	slot *arc.Arc[*Slot[T]]
}

// Send stores msg for the receiver. It panics if called twice.
func (s *SharedSender[T]) Send(msg T) {
	if s.slot == nil {
		panic("oneshot: can't send more than one message")
	}
	(*s.slot.Get()).Send(msg)
	s.Close()
}

// Close gives up the sender without sending.
func (s *SharedSender[T]) Close() {
	if s.slot != nil {
		s.slot.Release()
		s.slot = nil
	}
}

// SharedReceiver is the receiving half returned by NewShared.
type SharedReceiver[T any] struct {
	slot *arc.Arc[*Slot[T]]
}

func (r *SharedReceiver[T]) get() *Slot[T] {
	if r.slot == nil {
		panic("oneshot: message already received")
	}
	return *r.slot.Get()
}

// IsReady reports whether the message can be received without blocking.
func (r *SharedReceiver[T]) IsReady() bool {
	return r.get().IsReady()
}

// Wait blocks until the sender has sent.
func (r *SharedReceiver[T]) Wait() {
	r.get().Wait()
}

// Receive takes the message. It panics if the message is not ready yet or
// was already received.
func (r *SharedReceiver[T]) Receive() T {
	msg := r.get().Receive()
	r.Close()
	return msg
}

// Close gives up the receiver. An unreceived message is released once the
// sender is gone too.
func (r *SharedReceiver[T]) Close() {
	if r.slot != nil {
		r.slot.Release()
		r.slot = nil
	}
}
