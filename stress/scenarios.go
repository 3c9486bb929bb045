// Package stress drives the primitives of this module from many goroutines
// and checks the results, the way an external caller would use them.
package stress

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gitlab.com/slon/syncprim/arc"
	"gitlab.com/slon/syncprim/mutex"
	"gitlab.com/slon/syncprim/oneshot"
	"gitlab.com/slon/syncprim/rwmutex"
	"gitlab.com/slon/syncprim/waitgroup"
)

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrCheckFailed     = errors.New("check failed")
)

// Env is what a scenario runs against.
type Env struct {
	Config Config
	Clock  clockwork.Clock
	Logger *zap.Logger
}

// Result is the outcome of one scenario.
type Result struct {
	Name     string
	Ops      int
	Wakeups  int
	Duration time.Duration
}

type scenario func(ctx context.Context, env Env) (Result, error)

var scenarios = map[string]scenario{
	"mutex":   runMutex,
	"condvar": runCondvar,
	"rwlock":  runRwLock,
	"arc":     runArc,
	"oneshot": runOneshot,
}

// Order in which scenarios run when none are selected.
var allScenarios = []string{"mutex", "condvar", "rwlock", "arc", "oneshot"}

func checkf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrCheckFailed}, args...)...)
}

// runMutex: Workers горутин по Iterations инкрементов, ни одного потерянного
func runMutex(_ context.Context, env Env) (Result, error) {
	m := mutex.New(0)
	wg := waitgroup.New()
	for range env.Config.Workers {
		wg.Go(func() {
			for range env.Config.Iterations {
				g := m.Lock()
				*g.Value()++
				g.Unlock()
			}
		})
	}
	wg.Wait()

	want := env.Config.Workers * env.Config.Iterations
	g := m.Lock()
	got := *g.Value()
	g.Unlock()
	if got != want {
		return Result{}, checkf("counter is %d, want %d", got, want)
	}
	return Result{Ops: want}, nil
}

func runCondvar(_ context.Context, env Env) (Result, error) {
	m := mutex.New(0)
	var cv mutex.Condvar

	wg := waitgroup.New()
	wg.Go(func() {
		env.Clock.Sleep(env.Config.NotifyDelay)
		g := m.Lock()
		*g.Value() = 123
		g.Unlock()
		cv.NotifyOne()
	})

	wakeups := 0
	g := m.Lock()
	for *g.Value() < 100 {
		cv.Wait(g)
		wakeups++
	}
	got := *g.Value()
	g.Unlock()
	wg.Wait()

	if got != 123 {
		return Result{}, checkf("value is %d, want 123", got)
	}
	// Ложные пробуждения допустимы, но не должны преобладать
	if wakeups >= 10 {
		return Result{}, checkf("%d wakeups, waiter was busy looping", wakeups)
	}
	return Result{Ops: 1, Wakeups: wakeups}, nil
}

func runRwLock(ctx context.Context, env Env) (Result, error) {
	l := rwmutex.NewRwLock(map[int]int{})

	var reads atomic.Int64
	eg, ctx := errgroup.WithContext(ctx)
	for w := range env.Config.Workers {
		eg.Go(func() error {
			for i := range env.Config.Iterations {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if i%4 == 0 {
					g := l.Write()
					(*g.Value())[w]++
					g.Unlock()
					continue
				}
				g := l.Read()
				n := (*g.Value())[w]
				g.Unlock()
				// Ключ w пишет только этот воркер
				if want := (i + 3) / 4; n != want {
					return checkf("worker %d saw %d writes after %d iterations, want %d", w, n, i, want)
				}
				reads.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	g := l.Read()
	defer g.Unlock()
	writes := 0
	for w, n := range *g.Value() {
		want := (env.Config.Iterations + 3) / 4
		if n != want {
			return Result{}, checkf("worker %d made %d writes, want %d", w, n, want)
		}
		writes += n
	}
	return Result{Ops: writes + int(reads.Load())}, nil
}

type dropCounter struct {
	drops *atomic.Int32
}

func (d dropCounter) Drop() {
	d.drops.Add(1)
}

type greeting struct {
	text string
	dropCounter
}

func runArc(_ context.Context, env Env) (Result, error) {
	var drops atomic.Int32

	x := arc.New(greeting{text: "hello", dropCounter: dropCounter{drops: &drops}})
	y := x.Downgrade()
	z := x.Downgrade()

	upgraded := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer y.Release()
		a, ok := y.Upgrade()
		if !ok {
			upgraded <- ""
			return
		}
		defer a.Release()
		upgraded <- a.Get().text
	}()
	text := <-upgraded
	<-done
	if text != "hello" {
		return Result{}, checkf("upgrade from another goroutine got %q", text)
	}
	if n := drops.Load(); n != 0 {
		return Result{}, checkf("payload dropped %d times while strong handle is alive", n)
	}
	a, ok := z.Upgrade()
	if !ok {
		return Result{}, checkf("upgrade failed while strong handle is alive")
	}
	a.Release()

	x.Release()
	if n := drops.Load(); n != 1 {
		return Result{}, checkf("payload dropped %d times, want 1", n)
	}
	if _, ok := z.Upgrade(); ok {
		return Result{}, checkf("upgrade succeeded after the last strong handle")
	}
	z.Release()
	return Result{Ops: 1}, nil
}

func runOneshot(ctx context.Context, env Env) (Result, error) {
	const msg = "hello world!"

	var ch oneshot.Channel[string]
	sender, receiver := ch.Split()
	go sender.Send(msg)
	if got := receiver.Receive(); got != msg {
		return Result{}, checkf("split channel delivered %q", got)
	}

	s, r := oneshot.NewShared[string]()
	go s.Send(msg)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	got, err := PollReceive(ctx, env.Clock, r, time.Millisecond)
	if err != nil {
		return Result{}, fmt.Errorf("shared channel: %w", err)
	}
	if got != msg {
		return Result{}, checkf("shared channel delivered %q", got)
	}
	return Result{Ops: 2}, nil
}
