package spin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/spinner/internal/core/domain"
	"github.com/vietddude/spinner/internal/metrics"
)

// ResourceService is the remote side of a spin cycle, bound to one account.
type ResourceService interface {
	// Spend reports one spin of amount HP. A server-side refusal must be
	// returned wrapping ErrRejected.
	Spend(ctx context.Context, amount int) error

	// QueryState reads the spinner state from the service of record.
	QueryState(ctx context.Context) (domain.SpinnerState, error)

	// Repair restores an exhausted spinner.
	Repair(ctx context.Context) error
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Config holds executor settings.
type Config struct {
	PacingMin          time.Duration
	PacingMax          time.Duration
	FinalRepairTimeout time.Duration
}

// DefaultConfig returns the pacing window the server tolerates.
func DefaultConfig() Config {
	return Config{
		PacingMin:          3 * time.Second,
		PacingMax:          7 * time.Second,
		FinalRepairTimeout: 30 * time.Second,
	}
}

// Report summarises one spin cycle.
type Report struct {
	CycleID      string
	Budget       int
	Outcome      Outcome
	Spent        int
	Spins        int
	Repairs      int
	Repartitions int
	Err          error
	Duration     time.Duration
}

// Executor drives a partitioned budget against a ResourceService.
//
// Every branch decision is made on a fresh QueryState read. HP is never
// derived from the local queue because partial failures and retries on the
// server side make local bookkeeping drift.
type Executor struct {
	svc         ResourceService
	partitioner *Partitioner
	cfg         Config
	rng         *rand.Rand
	sleep       Sleeper
	log         *slog.Logger
}

// Option customises an Executor.
type Option func(*Executor)

// WithSleeper replaces the pacing sleeper.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) { e.sleep = s }
}

// WithRand sets the random source used for pacing delays.
func WithRand(rng *rand.Rand) Option {
	return func(e *Executor) { e.rng = rng }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.log = l }
}

// NewExecutor creates an executor for one account.
func NewExecutor(svc ResourceService, p *Partitioner, cfg Config, opts ...Option) *Executor {
	e := &Executor{
		svc:         svc,
		partitioner: p,
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:       Sleep,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cfg.FinalRepairTimeout <= 0 {
		e.cfg.FinalRepairTimeout = 30 * time.Second
	}
	return e
}

// Execute spends budget HP and always ends with one best-effort repair.
func (e *Executor) Execute(ctx context.Context, budget int) Report {
	start := time.Now()
	report := Report{CycleID: uuid.NewString(), Budget: budget}
	log := e.log.With("cycle", report.CycleID)

	var st state
	queue, err := e.partitioner.Split(budget)
	if err != nil {
		st = aborted{err: err}
	} else {
		log.Info("Budget partitioned", "hp", budget, "spins", len(queue), "sizes", queue)
		st = running{queue: queue}
	}
	if len(queue) == 0 && err == nil {
		st = done{}
	}

	for {
		var next state
		switch s := st.(type) {
		case running:
			next = e.spin(ctx, log, s, &report)
		case awaitingRepair:
			next = e.repair(ctx, log, s, &report)
		case resuming:
			report.Repartitions++
			metrics.RepartitionsTotal.WithLabelValues(s.reason).Inc()
			log.Info("Spins re-partitioned", "hp", s.hp, "reason", s.reason, "sizes", s.queue)
			next = running{queue: s.queue}
		case done:
			report.Outcome = OutcomeDone
			return e.finish(ctx, log, report, start)
		case aborted:
			report.Outcome = OutcomeAborted
			report.Err = s.err
			return e.finish(ctx, log, report, start)
		}
		e.transition(log, st, next)
		st = next
	}
}

func (e *Executor) spin(ctx context.Context, log *slog.Logger, s running, r *Report) state {
	if s.index >= len(s.queue) {
		return done{}
	}

	amount := s.queue[s.index]
	log.Info("Spinning", "spin", s.index+1, "of", len(s.queue), "hp", amount)

	err := e.svc.Spend(ctx, amount)
	switch {
	case err == nil:
		r.Spins++
		r.Spent += amount
		metrics.SpinsTotal.WithLabelValues("ok").Inc()
		metrics.HPSpentTotal.Add(float64(amount))

		current, err := e.svc.QueryState(ctx)
		if err != nil {
			return aborted{err: fmt.Errorf("%w: query state after spin: %w", ErrTransport, err)}
		}
		if current.Exhausted() {
			log.Warn("Spinner exhausted after spin, repairing")
			return awaitingRepair{reason: "exhausted"}
		}

		if err := e.pace(ctx); err != nil {
			return aborted{err: err}
		}
		if s.index+1 >= len(s.queue) {
			return done{}
		}
		return running{index: s.index + 1, queue: s.queue}

	case errors.Is(err, ErrRejected):
		metrics.SpinsTotal.WithLabelValues("rejected").Inc()
		log.Warn("Spin rejected, re-reading spinner state", "hp", amount, "error", err)

		current, err := e.svc.QueryState(ctx)
		if err != nil {
			return aborted{err: fmt.Errorf("%w: query state after rejection: %w", ErrTransport, err)}
		}
		if !current.CanSpend() {
			return aborted{err: ErrSpendDisallowed}
		}
		if current.Exhausted() {
			return awaitingRepair{reason: "rejected"}
		}
		return e.resume(current.HP, "rejected")

	default:
		metrics.SpinsTotal.WithLabelValues("error").Inc()
		return aborted{err: fmt.Errorf("%w: spin %d hp: %w", ErrTransport, amount, err)}
	}
}

func (e *Executor) repair(ctx context.Context, log *slog.Logger, s awaitingRepair, r *Report) state {
	r.Repairs++
	if err := e.svc.Repair(ctx); err != nil {
		metrics.RepairsTotal.WithLabelValues("failed").Inc()
		return aborted{err: fmt.Errorf("%w: %w", ErrRepairFailed, err)}
	}
	metrics.RepairsTotal.WithLabelValues("ok").Inc()

	current, err := e.svc.QueryState(ctx)
	if err != nil {
		return aborted{err: fmt.Errorf("%w: query state after repair: %w", ErrTransport, err)}
	}
	if current.Exhausted() {
		return aborted{err: fmt.Errorf("%w: %w after repair (%s)", ErrRepairFailed, ErrExhausted, s.reason)}
	}

	log.Info("Spinner repaired", "hp", current.HP)
	return e.resume(current.HP, "repaired")
}

func (e *Executor) resume(hp int, reason string) state {
	queue, err := e.partitioner.Split(hp)
	if err != nil {
		return aborted{err: err}
	}
	if len(queue) == 0 {
		return done{}
	}
	return resuming{hp: hp, queue: queue, reason: reason}
}

// finish issues the unconditional end-of-cycle repair. It runs on a
// context detached from cancellation so a stopped farmer still leaves the
// account repaired.
func (e *Executor) finish(ctx context.Context, log *slog.Logger, r Report, start time.Time) Report {
	repairCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.FinalRepairTimeout)
	defer cancel()

	if err := e.svc.Repair(repairCtx); err != nil {
		metrics.RepairsTotal.WithLabelValues("final_failed").Inc()
		log.Debug("Final repair failed", "error", err)
	} else {
		metrics.RepairsTotal.WithLabelValues("final_ok").Inc()
	}

	r.Duration = time.Since(start)
	metrics.CyclesTotal.WithLabelValues(string(r.Outcome)).Inc()

	attrs := []any{
		"outcome", r.Outcome,
		"spent", r.Spent,
		"budget", r.Budget,
		"spins", r.Spins,
		"repairs", r.Repairs,
		"repartitions", r.Repartitions,
		"duration", r.Duration.Round(time.Second),
	}
	if r.Err != nil {
		log.Warn("Spin cycle aborted", append(attrs, "error", r.Err)...)
	} else {
		log.Info("Spin cycle finished", attrs...)
	}
	return r
}

func (e *Executor) transition(log *slog.Logger, from, to state) {
	metrics.StateTransitionsTotal.WithLabelValues(to.name()).Inc()
	if from.name() == to.name() {
		return
	}
	log.Debug("Spin state changed", "from", from.name(), "to", to.name())
}

func (e *Executor) pace(ctx context.Context) error {
	delay := e.cfg.PacingMin
	if spread := e.cfg.PacingMax - e.cfg.PacingMin; spread > 0 {
		delay += time.Duration(e.rng.Int63n(int64(spread) + 1))
	}
	if delay <= 0 {
		return nil
	}
	return e.sleep(ctx, delay)
}

// Sleep is the default Sleeper, backed by a real timer.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
