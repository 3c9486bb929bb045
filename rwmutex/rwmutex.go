package rwmutex

import (
	"math"
	"sync/atomic"

	"gitlab.com/slon/syncprim/futex"
)

const (
	writeLocked uint32 = math.MaxUint32

	// DefaultMaxReaders is the largest reader count the state word can encode
	// without colliding with the write-locked value.
	DefaultMaxReaders uint32 = (math.MaxUint32 - 3) / 2
)

// A RWMutex is a reader/writer mutual exclusion lock.
// The lock can be held by an arbitrary number of readers or a single writer.
// The zero value for a RWMutex is an unlocked mutex.
//
// If a goroutine holds a RWMutex for reading and another goroutine might
// call Lock, no goroutine should expect to be able to acquire a read lock
// until the initial read lock is released. In particular, this prohibits
// recursive read locking. This is to ensure that the lock eventually becomes
// available; a blocked Lock call excludes new readers from acquiring the
// lock.
type RWMutex struct {
	// Чётное значение - удвоенное число читателей,
	// нечётное - писатель ждёт (новые читатели блокируются),
	// MaxUint32 - захвачен писателем
	state atomic.Uint32
	// Отдельный счётчик для будильника писателей
	writerWake atomic.Uint32
	// 0 означает DefaultMaxReaders
	maxReaders uint32
}

// Option configures a RWMutex.
type Option func(*RWMutex)

// WithMaxReaders limits the number of concurrent readers. RLock panics when
// the limit would be exceeded. Values above DefaultMaxReaders are clamped.
func WithMaxReaders(n uint32) Option {
	return func(rw *RWMutex) {
		rw.maxReaders = min(n, DefaultMaxReaders)
	}
}

// New creates *RWMutex.
func New(opts ...Option) *RWMutex {
	rw := &RWMutex{}
	for _, opt := range opts {
		opt(rw)
	}
	return rw
}

func (rw *RWMutex) readerLimit() uint32 {
	if rw.maxReaders == 0 {
		return DefaultMaxReaders
	}
	return rw.maxReaders
}

// RLock locks rw for reading.
//
// It should not be used for recursive read locking; a blocked Lock
// call excludes new readers from acquiring the lock. See the
// documentation on the RWMutex type.
func (rw *RWMutex) RLock() {
	s := rw.state.Load()
	for {
		if s%2 == 0 {
			if s/2 >= rw.readerLimit() {
				panic("rwmutex: too many readers")
			}
			if rw.state.CompareAndSwap(s, s+2) {
				return
			}
			s = rw.state.Load()
			continue
		}
		// Писатель ждёт или держит блокировку - не обгоняем его
		futex.Wait(&rw.state, s)
		s = rw.state.Load()
	}
}

// TryRLock tries to lock rw for reading without blocking and reports whether
// it succeeded.
func (rw *RWMutex) TryRLock() bool {
	for {
		s := rw.state.Load()
		if s%2 == 1 {
			return false
		}
		if s/2 >= rw.readerLimit() {
			panic("rwmutex: too many readers")
		}
		if rw.state.CompareAndSwap(s, s+2) {
			return true
		}
	}
}

// RUnlock undoes a single RLock call;
// it does not affect other simultaneous readers.
// It is a run-time error if rw is not locked for reading
// on entry to RUnlock.
func (rw *RWMutex) RUnlock() {
	s := rw.state.Load()
	if s == writeLocked || s < 2 {
		panic("rwmutex: RUnlock of unlocked RWMutex")
	}
	// 3 -> 1: ушёл последний читатель, а писатель ждёт
	if rw.state.Add(^uint32(1)) == 1 {
		rw.writerWake.Add(1)
		futex.WakeOne(&rw.writerWake)
	}
}

// Lock locks rw for writing.
// If the lock is already locked for reading or writing,
// Lock blocks until the lock is available.
func (rw *RWMutex) Lock() {
	s := rw.state.Load()
	for {
		// Читателей нет - забираем блокировку
		if s <= 1 {
			if rw.state.CompareAndSwap(s, writeLocked) {
				return
			}
			s = rw.state.Load()
			continue
		}
		// Поднимаем флаг ожидания, чтобы не пускать новых читателей
		if s%2 == 0 {
			if !rw.state.CompareAndSwap(s, s+1) {
				s = rw.state.Load()
				continue
			}
		}
		w := rw.writerWake.Load()
		s = rw.state.Load()
		if s >= 2 {
			futex.Wait(&rw.writerWake, w)
			s = rw.state.Load()
		}
	}
}

// TryLock tries to lock rw for writing without blocking and reports whether
// it succeeded.
func (rw *RWMutex) TryLock() bool {
	s := rw.state.Load()
	return s <= 1 && rw.state.CompareAndSwap(s, writeLocked)
}

// Unlock unlocks rw for writing. It is a run-time error if rw is
// not locked for writing on entry to Unlock.
//
// As with Mutexes, a locked RWMutex is not associated with a particular
// goroutine. One goroutine may RLock (Lock) a RWMutex and then
// arrange for another goroutine to RUnlock (Unlock) it.
func (rw *RWMutex) Unlock() {
	if rw.state.Load() != writeLocked {
		panic("rwmutex: Unlock of RWMutex not locked for writing")
	}
	rw.state.Store(0)
	rw.writerWake.Add(1)
	// Не знаем, кто ждёт - будим одного писателя и всех читателей
	futex.WakeOne(&rw.writerWake)
	futex.WakeAll(&rw.state)
}
