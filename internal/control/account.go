package control

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/vietddude/spinner/internal/core/domain"
	"github.com/vietddude/spinner/internal/health"
	"github.com/vietddude/spinner/internal/infra/proxy"
	"github.com/vietddude/spinner/internal/reward"
	"github.com/vietddude/spinner/internal/spin"
)

// processAccount runs one account through register, tasks, spinners,
// upgrades and boxes. Only failures that leave nothing else to do end it
// early; everything else is logged and the pass moves on.
func (f *Farmer) processAccount(ctx context.Context, passLog *slog.Logger, account domain.Account) health.AccountHealth {
	proxyURL := f.proxyFor(account)
	result := health.AccountHealth{
		Name:      account.DisplayName(),
		Proxy:     proxy.Redact(proxyURL),
		Result:    health.ResultOK,
		UpdatedAt: time.Now(),
	}
	log := passLog.With("account", account.Index+1, "name", result.Name)

	var session AccountSession
	captureAPI := func() {
		if session == nil {
			return
		}
		h := session.Health()
		result.APIRequests = h.Requests
		result.APIErrorRate = h.ErrorRate
		result.APIAvailable = h.Available
	}

	fail := func(status health.AccountResult, msg string, err error) health.AccountHealth {
		captureAPI()
		result.Result = status
		if err != nil {
			result.Error = err.Error()
		}
		result.UpdatedAt = time.Now()
		log.Warn(msg, "error", err)
		return result
	}

	if f.leaser != nil {
		key := account.Key()
		ok, err := f.leaser.AcquireLease(ctx, key)
		if err != nil {
			return fail(health.ResultSkipped, "Could not acquire account lease", err)
		}
		if !ok {
			return fail(health.ResultSkipped, "Account is held by another instance", nil)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := f.leaser.ReleaseLease(releaseCtx, key); err != nil {
				log.Warn("Failed to release account lease", "error", err)
			}
		}()
	}

	opened, err := f.sessions(account, proxyURL)
	if err != nil {
		return fail(health.ResultFailed, "Could not open session", err)
	}
	session = opened
	defer session.Close()

	result.IP = "direct"
	if proxyURL != "" {
		ip, err := session.CheckIP(ctx)
		if err != nil {
			return fail(health.ResultSkipped, "Proxy check failed, skipping account", err)
		}
		result.IP = ip
	}
	log = log.With("ip", result.IP)
	log.Info("Processing account", "proxy", result.Proxy)

	if reg, err := session.Register(ctx); err != nil {
		log.Warn("Registration failed", "error", err)
	} else if reg.AlreadyRegistered {
		log.Debug("Account already registered")
	} else {
		log.Info("Account registered", "user_id", reg.UserID)
	}

	profile, err := session.Profile(ctx)
	if err != nil {
		return fail(health.ResultFailed, "Could not load profile", err)
	}

	if f.cfg.DoTasks && len(profile.Sections) > 0 {
		runner := reward.NewTaskRunner(session, f.cfg.Tasks, log, reward.WithTaskSleeper(f.sleep))
		tasks, err := runner.Run(ctx, profile.Sections)
		if err != nil {
			return fail(health.ResultFailed, "Tasks interrupted", err)
		}
		log.Info("Tasks checked",
			"completed", tasks.Completed,
			"pending", tasks.Pending,
			"failed", tasks.Failed,
			"ads", tasks.AdsWatched,
		)
	}

	log.Info("Balance", "balance", profile.Balance)

	// Tasks can run long; make sure the lease outlives the spin phase.
	if f.leaser != nil {
		if ok, err := f.leaser.RefreshLease(ctx, account.Key()); err != nil || !ok {
			log.Warn("Could not refresh account lease", "held", ok, "error", err)
		}
	}

	// An aborted cycle still leaves upgrades and boxes worth doing.
	spinErr := f.runSpinners(ctx, log, session, profile, &result)

	if f.cfg.Upgrade {
		f.upgrade(ctx, log, session)
	}

	if f.cfg.ClaimBoxes {
		claimer := reward.NewClaimer(session, f.cfg.BoxCooldown, f.cfg.Location, log)
		boxes, err := claimer.ClaimAll(ctx)
		if err != nil {
			log.Warn("Box claim failed", "error", err)
		} else {
			result.Boxes = boxes.Claimed
			if !boxes.NextTime.IsZero() {
				log.Info("Next box claim", "at", reward.FormatLocal(boxes.NextTime, f.cfg.Location))
			}
		}
	}

	if ctx.Err() != nil {
		return fail(health.ResultFailed, "Account interrupted", ctx.Err())
	}
	if spinErr != nil {
		return fail(health.ResultFailed, "Spin cycle aborted", spinErr)
	}
	captureAPI()
	result.UpdatedAt = time.Now()
	return result
}

// runSpinners spends every spinner that can spin and repairs the ones that
// ran dry without a running timer.
func (f *Farmer) runSpinners(
	ctx context.Context,
	log *slog.Logger,
	session AccountSession,
	profile *domain.Profile,
	result *health.AccountHealth,
) error {
	partitioner, err := spin.NewPartitioner(f.cfg.MaxPerSpin, rand.New(rand.NewSource(time.Now().UnixNano())))
	if err != nil {
		return err
	}

	var cycleErr error
	for _, s := range profile.Spinners {
		spinLog := log.With("spinner", s.ID)

		switch {
		case s.HP > 0 && !s.Broken:
			spinLog.Info("Spinner ready", "hp", s.HP, "level", s.Level)
			executor := spin.NewExecutor(session.ForSpinner(s.ID), partitioner, f.cfg.Spin,
				spin.WithSleeper(f.sleep),
				spin.WithLogger(spinLog),
			)
			report := executor.Execute(ctx, s.HP)
			result.Spent += report.Spent
			switch {
			case report.Err == nil:
			case report.Spent >= report.Budget:
				// The whole budget landed; the spinner is simply waiting on repair.
				spinLog.Info("Budget spent, spinner left for repair", "reason", report.Err)
			default:
				cycleErr = errors.Join(cycleErr, report.Err)
			}

		case s.HP <= 0 && !s.RepairEndsAt.IsZero():
			spinLog.Warn("Spinner under repair", "ends", reward.FormatLocal(s.RepairEndsAt, f.cfg.Location))

		case s.HP <= 0:
			spinLog.Warn("Spinner needs repair")
			if err := session.Repair(ctx); err != nil {
				spinLog.Warn("Repair failed", "error", err)
			} else {
				spinLog.Info("Spinner repaired")
			}

		default:
			spinLog.Warn("Spinner is broken", "hp", s.HP)
		}
	}
	return cycleErr
}

// upgrade reloads the profile, since spinning changed the balance, and
// buys levels while affordable.
func (f *Farmer) upgrade(ctx context.Context, log *slog.Logger, session AccountSession) {
	profile, err := session.Profile(ctx)
	if err != nil {
		log.Warn("Could not reload profile for upgrade", "error", err)
		return
	}
	n, err := spin.NewUpgrader(session, log).Run(ctx, profile)
	if err != nil {
		log.Warn("Upgrade failed", "upgrades", n, "error", err)
		return
	}
	if n > 0 {
		log.Info("Spinner upgraded", "levels", n)
	}
}
