package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/spinner/internal/core/domain"
	"github.com/vietddude/spinner/internal/health"
	"github.com/vietddude/spinner/internal/infra/proxy"
	"github.com/vietddude/spinner/internal/infra/storage"
	"github.com/vietddude/spinner/internal/metrics"
	"github.com/vietddude/spinner/internal/reward"
	"github.com/vietddude/spinner/internal/spin"
)

// Config holds the farmer's runtime settings.
type Config struct {
	Port         int
	MaxPerSpin   int
	Spin         spin.Config
	Tasks        reward.TaskConfig
	DoTasks      bool
	ClaimBoxes   bool
	BoxCooldown  time.Duration
	Upgrade      bool
	PassInterval time.Duration
	AccountDelay time.Duration
	Location     *time.Location
}

// Farmer sweeps every account once per pass and sleeps between passes.
type Farmer struct {
	cfg      Config
	accounts storage.AccountRepository
	proxies  *proxy.Pool
	sessions SessionFactory
	leaser   Leaser
	monitor  *health.Monitor
	server   *health.Server
	sleep    spin.Sleeper
	closers  []func() error
	log      *slog.Logger

	// startCollectors runs background collectors bound to Run's context.
	startCollectors []func(ctx context.Context)
}

// Option customises a Farmer.
type Option func(*Farmer)

// WithLeaser enables per-account leases.
func WithLeaser(l Leaser) Option {
	return func(f *Farmer) { f.leaser = l }
}

// WithSleeper replaces every delay the farmer and its executors take.
func WithSleeper(s spin.Sleeper) Option {
	return func(f *Farmer) { f.sleep = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Farmer) { f.log = l }
}

// WithCloser registers a cleanup run by Close.
func WithCloser(fn func() error) Option {
	return func(f *Farmer) { f.closers = append(f.closers, fn) }
}

// WithCollector registers a background collector started by Run.
func WithCollector(fn func(ctx context.Context)) Option {
	return func(f *Farmer) { f.startCollectors = append(f.startCollectors, fn) }
}

// NewFarmer creates a farmer.
func NewFarmer(
	cfg Config,
	accounts storage.AccountRepository,
	proxies *proxy.Pool,
	sessions SessionFactory,
	opts ...Option,
) *Farmer {
	if cfg.MaxPerSpin <= 0 {
		cfg.MaxPerSpin = spin.DefaultMaxPerSpin
	}
	if cfg.PassInterval <= 0 {
		cfg.PassInterval = 7 * time.Hour
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if proxies == nil {
		proxies, _ = proxy.NewPool(proxy.StrategyIndex, nil)
	}

	f := &Farmer{
		cfg:      cfg,
		accounts: accounts,
		proxies:  proxies,
		sessions: sessions,
		monitor:  health.NewMonitor(cfg.PassInterval),
		sleep:    spin.Sleep,
		log:      slog.Default().With("component", "farmer"),
	}
	for _, opt := range opts {
		opt(f)
	}
	if cfg.Port > 0 {
		f.server = health.NewServer(f.monitor, cfg.Port)
	}
	return f
}

// Monitor returns the health monitor.
func (f *Farmer) Monitor() *health.Monitor {
	return f.monitor
}

// Run executes passes until ctx is done, or a single pass when once is set.
// The health server runs alongside and stops when the loop ends.
func (f *Farmer) Run(ctx context.Context, once bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, start := range f.startCollectors {
		start(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)

	if f.server != nil {
		g.Go(func() error {
			f.log.Info("Health server listening", "port", f.cfg.Port)
			return f.server.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return f.server.Stop(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer cancel()
		return f.loop(gctx, once)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (f *Farmer) loop(ctx context.Context, once bool) error {
	for {
		if _, err := f.RunPass(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Error("Pass failed", "error", err)
		}
		if once {
			return nil
		}

		next := time.Now().Add(f.cfg.PassInterval)
		f.log.Info("Waiting for next pass",
			"interval", f.cfg.PassInterval,
			"next", reward.FormatLocal(next, f.cfg.Location),
		)
		if err := f.sleep(ctx, f.cfg.PassInterval); err != nil {
			return err
		}
	}
}

// RunPass processes every account once, sequentially.
func (f *Farmer) RunPass(ctx context.Context) (health.PassSummary, error) {
	summary := health.PassSummary{ID: uuid.NewString(), StartedAt: time.Now()}
	log := f.log.With("pass", summary.ID)

	accounts, err := f.accounts.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return summary, storage.ErrNoAccounts
	}

	summary.Accounts = len(accounts)
	f.monitor.PassStarted()
	log.Info("Pass started", "accounts", len(accounts), "proxies", f.proxies.Len())

	for i, account := range accounts {
		if ctx.Err() != nil {
			break
		}

		result := f.processAccount(ctx, log, account)
		f.monitor.RecordAccount(account.Key(), result)
		metrics.AccountsProcessedTotal.WithLabelValues(string(result.Result)).Inc()

		summary.Spent += result.Spent
		switch result.Result {
		case health.ResultOK:
			summary.Succeeded++
		case health.ResultSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}

		if i < len(accounts)-1 && f.cfg.AccountDelay > 0 {
			if err := f.sleep(ctx, f.cfg.AccountDelay); err != nil {
				break
			}
		}
	}

	summary.FinishedAt = time.Now()
	f.monitor.PassFinished(summary)
	metrics.LastPassTimestamp.SetToCurrentTime()

	log.Info("Pass finished",
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"spent", summary.Spent,
		"duration", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second),
	)
	return summary, ctx.Err()
}

// proxyFor returns the account's own proxy or the pool's assignment.
func (f *Farmer) proxyFor(account domain.Account) string {
	if account.ProxyURL != "" {
		if p, err := proxy.Normalize(account.ProxyURL); err == nil {
			return p
		}
	}
	return f.proxies.Assign(account.Index)
}

// Close releases resources registered with WithCloser.
func (f *Farmer) Close() error {
	var errs []error
	for _, fn := range f.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
