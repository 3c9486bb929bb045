// Package arc provides an atomically reference-counted shared pointer with
// weak handles.
//
// Memory is reclaimed by the garbage collector, but teardown is
// deterministic: the payload is destroyed (Dropper.Drop, then the slot is
// zeroed) exactly once when the last strong handle is released, and OnFree
// hooks run exactly once when the last handle of any kind is released.
package arc

import (
	"math"
	"reflect"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
)

// Dropper is implemented by payloads that own resources to release when the
// last strong handle goes away.
type Dropper interface {
	Drop()
}

// Option configures a new allocation.
type Option func(*options)

type options struct {
	onFree []func()
}

// OnFree registers f to run once the allocation is torn down, after the
// payload has been dropped and the last weak handle released.
func OnFree(f func()) Option {
	return func(o *options) {
		o.onFree = append(o.onFree, f)
	}
}

// locked is the allocRefCount value while GetMut checks for uniqueness.
const locked = math.MaxUint64

// abort is called when a reference count saturates. The process cannot keep
// going with a corrupted count.
var abort = func(msg string) {
	zap.L().Fatal(msg)
}

type arcData[T any] struct {
	// Число Arc
	dataRefCount atomic.Uint64
	// Число Weak, плюс один, пока жив хотя бы один Arc
	allocRefCount atomic.Uint64
	data          T
	onFree        []func()
}

// Destroy releases the resources owned by *v and zeroes it. Drop runs if
// the value (or a pointer to it) implements Dropper; a nil value is only
// zeroed.
func Destroy[T any](v *T) {
	if dr, ok := any(*v).(Dropper); ok {
		if !isNil(dr) {
			dr.Drop()
		}
	} else if dr, ok := any(v).(Dropper); ok {
		dr.Drop()
	}
	var zero T
	*v = zero
}

func isNil(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// Arc is a strong handle. It keeps the payload alive until Release.
type Arc[T any] struct {
	ptr *arcData[T]
}

// Weak is a weak handle. It keeps the allocation alive, not the payload, and
// must be upgraded to reach the payload.
type Weak[T any] struct {
	ptr *arcData[T]
}

// New allocates value behind a new strong handle.
func New[T any](value T, opts ...Option) *Arc[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	d := &arcData[T]{data: value, onFree: o.onFree}
	d.dataRefCount.Store(1)
	d.allocRefCount.Store(1)
	return &Arc[T]{ptr: d}
}

func (a *Arc[T]) data() *arcData[T] {
	if a.ptr == nil {
		panic("arc: use of released Arc")
	}
	return a.ptr
}

// Get returns the shared payload. The pointer is valid while a is live;
// mutating through it needs external synchronization or GetMut.
func (a *Arc[T]) Get() *T {
	return &a.data().data
}

// Clone returns a new strong handle to the same payload.
func (a *Arc[T]) Clone() *Arc[T] {
	d := a.data()
	if d.dataRefCount.Add(1)-1 > math.MaxUint64/2 {
		abort("arc: strong reference count overflow")
	}
	return &Arc[T]{ptr: d}
}

// GetMut returns exclusive access to the payload if no other strong or weak
// handle exists.
func (a *Arc[T]) GetMut() (*T, bool) {
	d := a.data()
	// Блокируем downgrade на время проверки: weak-ов быть не должно
	if !d.allocRefCount.CompareAndSwap(1, locked) {
		return nil, false
	}
	unique := d.dataRefCount.Load() == 1
	// Возвращаем 1 в любом случае, иначе downgrade будет крутиться вечно
	d.allocRefCount.Store(1)
	if !unique {
		return nil, false
	}
	return &d.data, true
}

// Downgrade returns a new weak handle to the same allocation.
func (a *Arc[T]) Downgrade() *Weak[T] {
	d := a.data()
	n := d.allocRefCount.Load()
	for {
		if n == locked {
			// GetMut держит счётчик - ждём, это ненадолго
			runtime.Gosched()
			n = d.allocRefCount.Load()
			continue
		}
		if n >= locked-1 {
			abort("arc: weak reference count overflow")
		}
		if d.allocRefCount.CompareAndSwap(n, n+1) {
			return &Weak[T]{ptr: d}
		}
		n = d.allocRefCount.Load()
	}
}

// StrongCount reports the number of strong handles. It is a snapshot.
func (a *Arc[T]) StrongCount() uint64 {
	return a.data().dataRefCount.Load()
}

// WeakCount reports the number of weak handles. It is a snapshot.
func (a *Arc[T]) WeakCount() uint64 {
	n := a.data().allocRefCount.Load()
	if n == locked {
		return 0
	}
	// Неявный weak, представляющий все Arc, не считаем
	return n - 1
}

// Release drops the strong handle. The last strong release destroys the
// payload. a must not be used afterwards.
func (a *Arc[T]) Release() {
	d := a.data()
	a.ptr = nil
	if d.dataRefCount.Add(^uint64(0)) != 0 {
		return
	}
	// Счётчик обнулился: никто больше не может читать данные
	Destroy(&d.data)
	// Отпускаем неявный weak, представлявший все Arc
	(&Weak[T]{ptr: d}).Release()
}

func (w *Weak[T]) data() *arcData[T] {
	if w.ptr == nil {
		panic("arc: use of released Weak")
	}
	return w.ptr
}

// Upgrade returns a new strong handle if the payload is still alive.
func (w *Weak[T]) Upgrade() (*Arc[T], bool) {
	d := w.data()
	n := d.dataRefCount.Load()
	for {
		if n == 0 {
			return nil, false
		}
		if n > math.MaxUint64/2 {
			abort("arc: strong reference count overflow")
		}
		if d.dataRefCount.CompareAndSwap(n, n+1) {
			return &Arc[T]{ptr: d}, true
		}
		n = d.dataRefCount.Load()
	}
}

// Clone returns a new weak handle to the same allocation.
func (w *Weak[T]) Clone() *Weak[T] {
	d := w.data()
	if d.allocRefCount.Add(1)-1 > math.MaxUint64/2 {
		abort("arc: weak reference count overflow")
	}
	return &Weak[T]{ptr: d}
}

// Release drops the weak handle. The last release of any handle tears the
// allocation down. w must not be used afterwards.
func (w *Weak[T]) Release() {
	d := w.data()
	w.ptr = nil
	if d.allocRefCount.Add(^uint64(0)) != 0 {
		return
	}
	for _, f := range d.onFree {
		f()
	}
	d.onFree = nil
}
