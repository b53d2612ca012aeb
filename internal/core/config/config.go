package config

import (
	"time"

	"github.com/vietddude/spinner/internal/infra/api"
	"github.com/vietddude/spinner/internal/infra/proxy"
	redisclient "github.com/vietddude/spinner/internal/infra/redis"
	"github.com/vietddude/spinner/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	API      api.Config         `yaml:"api"`
	Spin     SpinConfig         `yaml:"spin"`
	Rewards  RewardsConfig      `yaml:"rewards"`
	Upgrade  UpgradeConfig      `yaml:"upgrade"`
	Schedule ScheduleConfig     `yaml:"schedule"`
	Accounts AccountsConfig     `yaml:"accounts"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"` // 0 disables the health server
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // debug, info, warn, error
	Timezone string `yaml:"timezone"` // display zone for reward times, default local
}

// SpinConfig controls budget partitioning and pacing.
type SpinConfig struct {
	MaxPerSpin int           `yaml:"max_per_spin"`
	PacingMin  time.Duration `yaml:"pacing_min"`
	PacingMax  time.Duration `yaml:"pacing_max"`
}

// RewardsConfig controls box claiming and tasks.
type RewardsConfig struct {
	BoxCooldown     time.Duration `yaml:"box_cooldown"`
	ClaimBoxes      *bool         `yaml:"claim_boxes"`
	DoTasks         bool          `yaml:"do_tasks"`
	AdWatchDuration time.Duration `yaml:"ad_watch_duration"`
	TaskDelayMin    time.Duration `yaml:"task_delay_min"`
	TaskDelayMax    time.Duration `yaml:"task_delay_max"`
}

// UpgradeConfig controls spinner upgrades.
type UpgradeConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ScheduleConfig controls the outer loop.
type ScheduleConfig struct {
	PassInterval time.Duration `yaml:"pass_interval"`
	AccountDelay time.Duration `yaml:"account_delay"`
}

// AccountSource selects where accounts are read from.
type AccountSource string

const (
	SourceFile     AccountSource = "file"
	SourcePostgres AccountSource = "postgres"
)

// AccountsConfig locates accounts and proxies.
type AccountsConfig struct {
	Source        AccountSource  `yaml:"source"`
	File          string         `yaml:"file"`
	ProxiesFile   string         `yaml:"proxies_file"`
	ProxyStrategy proxy.Strategy `yaml:"proxy_strategy"`
}

// ClaimBoxesEnabled reports whether boxes should be claimed. It defaults
// to true when unset.
func (r RewardsConfig) ClaimBoxesEnabled() bool {
	return r.ClaimBoxes == nil || *r.ClaimBoxes
}

// Location resolves the display time zone.
func (l LoggingConfig) Location() (*time.Location, error) {
	if l.Timezone == "" || l.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(l.Timezone)
}
