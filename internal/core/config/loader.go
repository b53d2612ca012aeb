package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/spinner/internal/infra/proxy"
	"github.com/vietddude/spinner/internal/reward"
	"github.com/vietddude/spinner/internal/spin"
)

// Load reads configuration from a YAML file. An empty path yields the
// defaults.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the YAML content
		expandedData := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.Spin.MaxPerSpin == 0 {
		cfg.Spin.MaxPerSpin = spin.DefaultMaxPerSpin
	}
	if cfg.Spin.PacingMin == 0 && cfg.Spin.PacingMax == 0 {
		def := spin.DefaultConfig()
		cfg.Spin.PacingMin = def.PacingMin
		cfg.Spin.PacingMax = def.PacingMax
	}

	if cfg.Rewards.BoxCooldown == 0 {
		cfg.Rewards.BoxCooldown = reward.DefaultBoxCooldown
	}
	tasks := reward.DefaultTaskConfig()
	if cfg.Rewards.AdWatchDuration == 0 {
		cfg.Rewards.AdWatchDuration = tasks.AdWatch
	}
	if cfg.Rewards.TaskDelayMin == 0 && cfg.Rewards.TaskDelayMax == 0 {
		cfg.Rewards.TaskDelayMin = tasks.TaskDelayMin
		cfg.Rewards.TaskDelayMax = tasks.TaskDelayMax
	}

	if cfg.Schedule.PassInterval == 0 {
		cfg.Schedule.PassInterval = 7 * time.Hour
	}
	if cfg.Schedule.AccountDelay == 0 {
		cfg.Schedule.AccountDelay = time.Second
	}

	if cfg.Accounts.Source == "" {
		cfg.Accounts.Source = SourceFile
	}
	if cfg.Accounts.File == "" {
		cfg.Accounts.File = "data.txt"
	}
	if cfg.Accounts.ProxyStrategy == "" {
		cfg.Accounts.ProxyStrategy = proxy.StrategyIndex
	}
}

// Validate checks values that defaults cannot fix.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Spin.MaxPerSpin < 1 {
		errs = append(errs, fmt.Errorf("spin.max_per_spin must be at least 1, got %d", c.Spin.MaxPerSpin))
	}
	if c.Spin.PacingMax < c.Spin.PacingMin {
		errs = append(errs, fmt.Errorf("spin.pacing_max (%s) is below pacing_min (%s)", c.Spin.PacingMax, c.Spin.PacingMin))
	}
	if c.Rewards.TaskDelayMax < c.Rewards.TaskDelayMin {
		errs = append(errs, fmt.Errorf("rewards.task_delay_max is below task_delay_min"))
	}

	switch c.Accounts.Source {
	case SourceFile:
	case SourcePostgres:
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("accounts.source is postgres but database.url is empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown accounts.source %q", c.Accounts.Source))
	}

	if _, err := c.Logging.Location(); err != nil {
		errs = append(errs, fmt.Errorf("logging.timezone: %w", err))
	}

	return errors.Join(errs...)
}
