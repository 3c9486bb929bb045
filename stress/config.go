package stress

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// Config describes one stress run.
type Config struct {
	// Scenarios to run, in order. Empty means all of them.
	Scenarios   []string      `yaml:"scenarios"`
	Workers     int           `yaml:"workers"`
	Iterations  int           `yaml:"iterations"`
	NotifyDelay time.Duration `yaml:"notify_delay"`
	MetricsAddr string        `yaml:"metrics_addr"`
	LogLevel    string        `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		Iterations:  100000,
		NotifyDelay: 100 * time.Millisecond,
		LogLevel:    "info",
	}
}

// LoadConfig reads a YAML config on top of DefaultConfig. The result is not
// validated: flags may still override it.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	// Пустой файл - конфигурация по умолчанию
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// Validate checks that the numbers make sense.
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	for _, name := range c.Scenarios {
		if _, ok := scenarios[name]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownScenario, name)
		}
	}
	return nil
}

// BindFlags registers command line overrides for cfg on fs.
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringSliceVar(&cfg.Scenarios, "scenario", cfg.Scenarios, "scenarios to run (default: all)")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of concurrent workers")
	fs.IntVar(&cfg.Iterations, "iterations", cfg.Iterations, "lock round-trips per worker")
	fs.DurationVar(&cfg.NotifyDelay, "notify-delay", cfg.NotifyDelay, "delay before the condvar notifier fires")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve prometheus metrics on")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
}

// Override copies into c every field whose flag was set on fs.
func (c *Config) Override(fs *pflag.FlagSet, flags Config) {
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "scenario":
			c.Scenarios = flags.Scenarios
		case "workers":
			c.Workers = flags.Workers
		case "iterations":
			c.Iterations = flags.Iterations
		case "notify-delay":
			c.NotifyDelay = flags.NotifyDelay
		case "metrics-addr":
			c.MetricsAddr = flags.MetricsAddr
		case "log-level":
			c.LogLevel = flags.LogLevel
		}
	})
}
