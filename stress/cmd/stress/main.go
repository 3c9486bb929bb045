package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gitlab.com/slon/syncprim/futex"
	"gitlab.com/slon/syncprim/stress"
)

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// serveMetrics отдаёт метрики futex, пока не отменён ctx
func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) func() {
	reg := prometheus.NewRegistry()
	reg.MustRegister(futex.Collectors()...)
	reg.MustRegister(collectors.NewGoCollector())

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("metrics server shutdown error", zap.Error(err))
		}
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	flags := stress.DefaultConfig()

	cmd := &cobra.Command{
		Use:          "stress",
		Short:        "Run the synchronization primitives under concurrent load and check the results",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := stress.DefaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = stress.LoadConfig(configPath); err != nil {
					return err
				}
			}
			cfg.Override(cmd.Flags(), flags)

			logger, err := newLogger(cfg.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			defer func() { _ = logger.Sync() }()
			zap.ReplaceGlobals(logger)

			ctx := cmd.Context()
			if cfg.MetricsAddr != "" {
				stop := serveMetrics(ctx, cfg.MetricsAddr, logger)
				defer stop()
			}

			results, err := stress.Run(ctx, stress.Env{
				Config: cfg,
				Clock:  clockwork.NewRealClock(),
				Logger: logger,
			})
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s ok  ops=%-10d wakeups=%-3d %v\n", r.Name, r.Ops, r.Wakeups, r.Duration)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a .yaml config")
	stress.BindFlags(cmd.Flags(), &flags)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
