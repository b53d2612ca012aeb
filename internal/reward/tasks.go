package reward

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/vietddude/spinner/internal/core/domain"
	"github.com/vietddude/spinner/internal/spin"
)

// TaskService checks task requirements and runs ad views for one account.
type TaskService interface {
	CheckRequirement(ctx context.Context, requirementID int64) (bool, error)
	StartAd(ctx context.Context) (string, error)
	CompleteAd(ctx context.Context, hash string) (int64, error)
}

// TaskConfig holds task pacing.
type TaskConfig struct {
	AdWatch             time.Duration
	RequirementDelayMin time.Duration
	RequirementDelayMax time.Duration
	TaskDelayMin        time.Duration
	TaskDelayMax        time.Duration
}

// DefaultTaskConfig mirrors the pacing a real client shows.
func DefaultTaskConfig() TaskConfig {
	return TaskConfig{
		AdWatch:             15 * time.Second,
		RequirementDelayMin: 2 * time.Second,
		RequirementDelayMax: 5 * time.Second,
		TaskDelayMin:        3 * time.Second,
		TaskDelayMax:        7 * time.Second,
	}
}

// TaskSummary counts requirement results.
type TaskSummary struct {
	Completed  int
	Pending    int
	Failed     int
	AdsWatched int
}

// TaskRunner walks task sections and tries every requirement.
type TaskRunner struct {
	svc   TaskService
	cfg   TaskConfig
	rng   *rand.Rand
	sleep spin.Sleeper
	log   *slog.Logger
}

// TaskOption configures a TaskRunner.
type TaskOption func(*TaskRunner)

// WithTaskSleeper replaces the delays between requirements, tasks and ads.
func WithTaskSleeper(s spin.Sleeper) TaskOption {
	return func(r *TaskRunner) { r.sleep = s }
}

// NewTaskRunner creates a task runner.
func NewTaskRunner(svc TaskService, cfg TaskConfig, log *slog.Logger, opts ...TaskOption) *TaskRunner {
	if log == nil {
		log = slog.Default()
	}
	r := &TaskRunner{
		svc:   svc,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: spin.Sleep,
		log:   log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes all sections. It stops early only when ctx is done.
func (r *TaskRunner) Run(ctx context.Context, sections []domain.TaskSection) (TaskSummary, error) {
	var summary TaskSummary

	for _, section := range sections {
		r.log.Info("Processing task section", "section", section.Title)

		for _, task := range section.Tasks {
			for _, req := range task.Requirements {
				if req.ID == domain.AdRequirementID {
					if r.watchAd(ctx) {
						summary.AdsWatched++
					}
					continue
				}

				ok, err := r.svc.CheckRequirement(ctx, req.ID)
				switch {
				case err != nil:
					summary.Failed++
					r.log.Warn("Requirement check failed", "task", task.Name, "requirement", req.Name, "error", err)
				case ok:
					summary.Completed++
					r.log.Info("Requirement completed", "task", task.Name, "requirement", req.Name, "reward", task.Reward)
				default:
					summary.Pending++
					r.log.Warn("Requirement pending", "task", task.Name, "requirement", req.Name, "type", req.Type, "hint", req.Hint())
				}

				if err := r.pause(ctx, r.cfg.RequirementDelayMin, r.cfg.RequirementDelayMax); err != nil {
					return summary, err
				}
			}

			if err := r.pause(ctx, r.cfg.TaskDelayMin, r.cfg.TaskDelayMax); err != nil {
				return summary, err
			}
		}
	}

	return summary, nil
}

func (r *TaskRunner) watchAd(ctx context.Context) bool {
	hash, err := r.svc.StartAd(ctx)
	if err != nil || hash == "" {
		r.log.Warn("Could not start ad", "error", err)
		return false
	}

	r.log.Info("Watching ad", "hash", hash, "duration", r.cfg.AdWatch)
	if err := r.sleep(ctx, r.cfg.AdWatch); err != nil {
		return false
	}

	reward, err := r.svc.CompleteAd(ctx, hash)
	if err != nil || reward == 0 {
		r.log.Warn("Ad not rewarded", "error", err)
		return false
	}

	r.log.Info("Ad rewarded", "reward", reward)
	return true
}

func (r *TaskRunner) pause(ctx context.Context, lo, hi time.Duration) error {
	d := lo
	if hi > lo {
		d += time.Duration(r.rng.Int63n(int64(hi-lo) + 1))
	}
	if d <= 0 {
		return nil
	}
	return r.sleep(ctx, d)
}
