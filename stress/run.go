package stress

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Run executes the scenarios selected in env.Config and returns their
// results. It stops at the first failing scenario.
func Run(ctx context.Context, env Env) ([]Result, error) {
	if err := env.Config.Validate(); err != nil {
		return nil, err
	}
	names := env.Config.Scenarios
	if len(names) == 0 {
		names = allScenarios
	}

	results := make([]Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		start := env.Clock.Now()
		res, err := scenarios[name](ctx, env)
		if err != nil {
			env.Logger.Error("scenario failed", zap.String("scenario", name), zap.Error(err))
			return results, fmt.Errorf("scenario %s: %w", name, err)
		}
		res.Name = name
		res.Duration = env.Clock.Since(start)
		env.Logger.Info("scenario passed",
			zap.String("scenario", res.Name),
			zap.Int("ops", res.Ops),
			zap.Int("wakeups", res.Wakeups),
			zap.Duration("duration", res.Duration),
		)
		results = append(results, res)
	}
	return results, nil
}
