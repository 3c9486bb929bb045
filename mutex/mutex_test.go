package mutex

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMutexCounter(t *testing.T) {
	const workers = 4
	iterations := 200000
	if testing.Short() {
		iterations = 10000
	}

	m := New(0)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range iterations {
				g := m.Lock()
				*g.Value()++
				g.Unlock()
			}
		}()
	}
	wg.Wait()

	g := m.Lock()
	defer g.Unlock()
	require.Equal(t, workers*iterations, *g.Value())
}

func TestZeroValue(t *testing.T) {
	var m Mutex[[]string]
	g := m.Lock()
	*g.Value() = append(*g.Value(), "a")
	g.Unlock()

	g = m.Lock()
	require.Equal(t, []string{"a"}, *g.Value())
	g.Unlock()
}

func TestTryLock(t *testing.T) {
	m := New("v")

	g, ok := m.TryLock()
	require.True(t, ok)

	_, ok = m.TryLock()
	require.False(t, ok)

	g.Unlock()
	g, ok = m.TryLock()
	require.True(t, ok)
	g.Unlock()
}

func TestUnlockStates(t *testing.T) {
	m := New(0)

	g := m.Lock()
	require.Equal(t, lockedNoWaiters, m.l.state.Load())
	g.Unlock()
	require.Equal(t, unlocked, m.l.state.Load())

	require.Panics(t, func() { g.Unlock() })
	require.Panics(t, func() { g.Value() })
}

func TestContendedHandoff(t *testing.T) {
	m := New(0)
	g := m.Lock()

	done := make(chan struct{})
	go func() {
		g := m.Lock()
		*g.Value() = 42
		g.Unlock()
		close(done)
	}()

	// Ждём, пока второй поток уйдёт в сон и отметит себя в состоянии
	require.Eventually(t, func() bool {
		return m.l.state.Load() == lockedWaiters
	}, time.Second*5, time.Millisecond)
	g.Unlock()
	<-done

	g = m.Lock()
	require.Equal(t, 42, *g.Value())
	g.Unlock()
}
