package reward

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/spinner/internal/core/domain"
	"github.com/vietddude/spinner/internal/metrics"
)

// BoxService lists and opens reward boxes for one account.
type BoxService interface {
	ListBoxes(ctx context.Context) ([]domain.Box, error)
	OpenBox(ctx context.Context, boxID int64) (*domain.BoxReward, error)
}

// ClaimSummary counts what happened to an account's boxes.
type ClaimSummary struct {
	Claimed int
	Waiting int
	Failed  int

	// NextTime is the earliest time a waiting box opens again.
	NextTime time.Time
}

// Claimer opens every box whose cooldown has elapsed.
type Claimer struct {
	svc      BoxService
	cooldown time.Duration
	now      func() time.Time
	loc      *time.Location
	log      *slog.Logger
}

// NewClaimer creates a box claimer. loc is the display zone for logs.
func NewClaimer(svc BoxService, cooldown time.Duration, loc *time.Location, log *slog.Logger) *Claimer {
	if cooldown <= 0 {
		cooldown = DefaultBoxCooldown
	}
	if log == nil {
		log = slog.Default()
	}
	return &Claimer{
		svc:      svc,
		cooldown: cooldown,
		now:      time.Now,
		loc:      loc,
		log:      log,
	}
}

// ClaimAll checks each box once. Failing to open one box does not stop the
// others; only a failure to list boxes is returned.
func (c *Claimer) ClaimAll(ctx context.Context) (ClaimSummary, error) {
	var summary ClaimSummary

	boxes, err := c.svc.ListBoxes(ctx)
	if err != nil {
		return summary, fmt.Errorf("list boxes: %w", err)
	}

	for _, box := range boxes {
		e := Check(box.OpenTime, c.now(), c.cooldown)
		if !e.CanClaim {
			summary.Waiting++
			if summary.NextTime.IsZero() || e.NextTime.Before(summary.NextTime) {
				summary.NextTime = e.NextTime
			}
			metrics.BoxesClaimedTotal.WithLabelValues("waiting").Inc()
			c.log.Warn("Box not ready",
				"box", box.Name,
				"next_claim", FormatLocal(e.NextTime, c.loc),
				"remaining", FormatRemaining(e.Remaining),
			)
			continue
		}

		reward, err := c.svc.OpenBox(ctx, box.ID)
		if err != nil {
			summary.Failed++
			metrics.BoxesClaimedTotal.WithLabelValues("failed").Inc()
			c.log.Error("Failed to open box", "box", box.Name, "error", err)
			continue
		}

		summary.Claimed++
		metrics.BoxesClaimedTotal.WithLabelValues("claimed").Inc()
		c.log.Info("Box opened", "box", box.Name, "reward", reward.Text)
	}

	return summary, nil
}
