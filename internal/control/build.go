package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/spinner/internal/core/config"
	"github.com/vietddude/spinner/internal/infra/proxy"
	redisclient "github.com/vietddude/spinner/internal/infra/redis"
	"github.com/vietddude/spinner/internal/infra/storage"
	"github.com/vietddude/spinner/internal/infra/storage/file"
	"github.com/vietddude/spinner/internal/infra/storage/postgres"
	"github.com/vietddude/spinner/internal/reward"
	"github.com/vietddude/spinner/internal/spin"
)

// FarmerConfig maps the application config onto farmer settings.
func FarmerConfig(cfg *config.AppConfig) (Config, error) {
	loc, err := cfg.Logging.Location()
	if err != nil {
		return Config{}, err
	}

	spinCfg := spin.DefaultConfig()
	spinCfg.PacingMin = cfg.Spin.PacingMin
	spinCfg.PacingMax = cfg.Spin.PacingMax

	tasks := reward.DefaultTaskConfig()
	tasks.AdWatch = cfg.Rewards.AdWatchDuration
	tasks.TaskDelayMin = cfg.Rewards.TaskDelayMin
	tasks.TaskDelayMax = cfg.Rewards.TaskDelayMax

	return Config{
		Port:         cfg.Server.Port,
		MaxPerSpin:   cfg.Spin.MaxPerSpin,
		Spin:         spinCfg,
		Tasks:        tasks,
		DoTasks:      cfg.Rewards.DoTasks,
		ClaimBoxes:   cfg.Rewards.ClaimBoxesEnabled(),
		BoxCooldown:  cfg.Rewards.BoxCooldown,
		Upgrade:      cfg.Upgrade.Enabled,
		PassInterval: cfg.Schedule.PassInterval,
		AccountDelay: cfg.Schedule.AccountDelay,
		Location:     loc,
	}, nil
}

// OpenAccounts returns the configured account source. The returned close
// function is never nil.
func OpenAccounts(ctx context.Context, cfg *config.AppConfig) (storage.AccountRepository, *postgres.DB, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Accounts.Source {
	case config.SourcePostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("failed to init db: %w", err)
		}
		slog.Info("Using PostgreSQL account source")
		return postgres.NewAccountRepo(db), db, db.Close, nil
	default:
		slog.Info("Using file account source", "path", cfg.Accounts.File)
		return file.NewAccountRepo(cfg.Accounts.File), nil, noop, nil
	}
}

// NewFromConfig wires a farmer with every dependency the config enables.
func NewFromConfig(ctx context.Context, cfg *config.AppConfig) (*Farmer, error) {
	farmerCfg, err := FarmerConfig(cfg)
	if err != nil {
		return nil, err
	}

	accounts, db, closeAccounts, err := OpenAccounts(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := []Option{WithCloser(closeAccounts)}
	if db != nil {
		opts = append(opts, WithCollector(db.StartMetricsCollector))
	}

	proxies, err := proxy.LoadFile(cfg.Accounts.ProxiesFile, cfg.Accounts.ProxyStrategy)
	if err != nil {
		_ = closeAccounts()
		return nil, err
	}

	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, account leases disabled", "error", err)
		} else {
			slog.Info("Account leases enabled", "owner", rc.Owner())
			opts = append(opts, WithLeaser(rc), WithCloser(rc.Close))
		}
	}

	return NewFarmer(farmerCfg, accounts, proxies, APISessionFactory(cfg.API), opts...), nil
}
