package stress

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testEnv(t *testing.T) Env {
	cfg := DefaultConfig()
	cfg.Iterations = 2000
	cfg.NotifyDelay = 20 * time.Millisecond
	return Env{
		Config: cfg,
		Clock:  clockwork.NewRealClock(),
		Logger: zaptest.NewLogger(t),
	}
}

func TestRunAll(t *testing.T) {
	results, err := Run(context.Background(), testEnv(t))
	require.NoError(t, err)

	var names []string
	for _, r := range results {
		names = append(names, r.Name)
		require.Positive(t, r.Ops, r.Name)
	}
	require.Empty(t, cmp.Diff(allScenarios, names))
}

func TestRunSelected(t *testing.T) {
	env := testEnv(t)
	env.Config.Scenarios = []string{"oneshot", "mutex"}

	results, err := Run(context.Background(), env)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "oneshot", results[0].Name)
	require.Equal(t, env.Config.Workers*env.Config.Iterations, results[1].Ops)
}

func TestRunUnknown(t *testing.T) {
	env := testEnv(t)
	env.Config.Scenarios = []string{"nope"}

	_, err := Run(context.Background(), env)
	require.ErrorIs(t, err, ErrUnknownScenario)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := Run(ctx, testEnv(t))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, results)
}

func TestArcScenarioRepeated(t *testing.T) {
	rounds := 20000
	if testing.Short() {
		rounds = 1000
	}
	for range rounds {
		_, err := runArc(context.Background(), Env{})
		require.NoError(t, err)
	}
}
