package arc

import (
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type detectDrop struct {
	drops *atomic.Int32
}

func (d detectDrop) Drop() {
	d.drops.Add(1)
}

type greeting struct {
	text string
	detectDrop
}

func TestWeakUpgradeLifecycle(t *testing.T) {
	var drops atomic.Int32

	x := New(greeting{text: "hello", detectDrop: detectDrop{drops: &drops}})
	y := x.Downgrade()
	z := x.Downgrade()

	seen := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer y.Release()
		// Пока жив x, weak можно поднять
		up, ok := y.Upgrade()
		if !ok {
			seen <- ""
			return
		}
		defer up.Release()
		seen <- up.Get().text
	}()
	require.Equal(t, "hello", x.Get().text)
	require.Equal(t, "hello", <-seen)
	<-done

	require.Equal(t, int32(0), drops.Load())
	up, ok := z.Upgrade()
	require.True(t, ok)
	up.Release()

	x.Release()

	require.Equal(t, int32(1), drops.Load())
	_, ok = z.Upgrade()
	require.False(t, ok)
	z.Release()
}

type node struct {
	drops *atomic.Int32
}

func (n *node) Drop() {
	n.drops.Add(1)
}

func TestNilPointerPayload(t *testing.T) {
	a := New((*node)(nil))
	require.NotPanics(t, a.Release)

	var drops atomic.Int32
	b := New(&node{drops: &drops})
	b.Release()
	require.Equal(t, int32(1), drops.Load())
}

func TestGetMut(t *testing.T) {
	a := New(10)

	v, ok := a.GetMut()
	require.True(t, ok)
	*v = 11
	require.Equal(t, 11, *a.Get())

	b := a.Clone()
	_, ok = a.GetMut()
	require.False(t, ok)
	b.Release()

	w := a.Downgrade()
	_, ok = a.GetMut()
	require.False(t, ok)
	w.Release()

	_, ok = a.GetMut()
	require.True(t, ok)
	// GetMut не должна оставлять счётчик заблокированным
	w = a.Downgrade()
	require.Equal(t, uint64(1), a.WeakCount())
	w.Release()
	a.Release()
}

func TestCounts(t *testing.T) {
	a := New("x")
	b := a.Clone()
	w := a.Downgrade()
	w2 := w.Clone()

	require.Equal(t, uint64(2), a.StrongCount())
	require.Equal(t, uint64(2), a.WeakCount())

	w.Release()
	w2.Release()
	b.Release()
	require.Equal(t, uint64(1), a.StrongCount())
	require.Equal(t, uint64(0), a.WeakCount())
	a.Release()
}

func TestOnFree(t *testing.T) {
	var drops, frees atomic.Int32

	a := New(detectDrop{drops: &drops}, OnFree(func() { frees.Add(1) }))
	w := a.Downgrade()

	a.Release()
	require.Equal(t, int32(1), drops.Load())
	require.Equal(t, int32(0), frees.Load(), "weak handle still holds the allocation")

	w2 := w.Clone()
	w.Release()
	require.Equal(t, int32(0), frees.Load())
	w2.Release()
	require.Equal(t, int32(1), frees.Load())
}

func TestPayloadZeroedOnDrop(t *testing.T) {
	type payload struct {
		buf []byte
	}
	a := New(payload{buf: make([]byte, 16)})
	w := a.Downgrade()
	d := a.ptr

	a.Release()
	require.Nil(t, d.data.buf)
	w.Release()
}

func TestConcurrentCloneRelease(t *testing.T) {
	var drops, frees atomic.Int32

	root := New(detectDrop{drops: &drops}, OnFree(func() { frees.Add(1) }))

	const workers = 8
	iterations := 10000
	if testing.Short() {
		iterations = 1000
	}

	var wg sync.WaitGroup
	for range workers {
		a := root.Clone()
		w := root.Downgrade()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range iterations {
				c := a.Clone()
				ww := c.Downgrade()
				if up, ok := ww.Upgrade(); ok {
					up.Release()
				}
				ww.Release()
				c.Release()
			}
			a.Release()
			w.Release()
		}()
	}
	root.Release()
	wg.Wait()

	require.Equal(t, int32(1), drops.Load())
	require.Equal(t, int32(1), frees.Load())
}

func TestUseAfterRelease(t *testing.T) {
	a := New(1)
	w := a.Downgrade()
	a.Release()
	require.Panics(t, func() { a.Get() })
	require.Panics(t, func() { a.Release() })

	w.Release()
	require.Panics(t, func() { w.Upgrade() })
}

func TestCloneSaturation(t *testing.T) {
	var aborted []string
	prev := abort
	abort = func(msg string) { aborted = append(aborted, msg) }
	defer func() { abort = prev }()

	a := New(1)
	a.ptr.dataRefCount.Store(math.MaxUint64/2 + 1)
	_ = a.Clone()
	require.Equal(t, []string{"arc: strong reference count overflow"}, aborted)
}

func TestWeakSaturation(t *testing.T) {
	var aborted []string
	prev := abort
	abort = func(msg string) { aborted = append(aborted, msg) }
	defer func() { abort = prev }()

	a := New(1)
	w := a.Downgrade()
	a.ptr.allocRefCount.Store(math.MaxUint64/2 + 1)
	_ = w.Clone()
	require.Equal(t, []string{"arc: weak reference count overflow"}, aborted)

	aborted = nil
	a.ptr.allocRefCount.Store(locked - 1)
	_ = a.Downgrade()
	require.Equal(t, []string{"arc: weak reference count overflow"}, aborted)
}

func TestDowngradeWaitsForGetMut(t *testing.T) {
	a := New(0)
	a.ptr.allocRefCount.Store(locked)

	got := make(chan *Weak[int])
	go func() {
		got <- a.Downgrade()
	}()

	// Имитируем завершение GetMut
	a.ptr.allocRefCount.Store(1)
	w := <-got
	require.Equal(t, uint64(2), a.ptr.allocRefCount.Load())
	w.Release()
	a.Release()
}
