package spin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/spinner/internal/core/domain"
)

// maxUpgradesPerPass stops a server that keeps reporting success without
// raising the level from looping forever.
const maxUpgradesPerPass = 50

// UpgradeService buys spinner levels.
type UpgradeService interface {
	Profile(ctx context.Context) (*domain.Profile, error)
	UpgradeSpinner(ctx context.Context, spinnerID int64) error
}

// Upgrader buys levels for an account's first spinner while the balance
// covers the next price.
type Upgrader struct {
	svc UpgradeService
	log *slog.Logger
}

// NewUpgrader creates an upgrader.
func NewUpgrader(svc UpgradeService, log *slog.Logger) *Upgrader {
	if log == nil {
		log = slog.Default()
	}
	return &Upgrader{svc: svc, log: log}
}

// Run upgrades until the balance runs short or the top level is reached.
// It returns the number of levels bought.
func (u *Upgrader) Run(ctx context.Context, profile *domain.Profile) (int, error) {
	upgrades := 0

	for upgrades < maxUpgradesPerPass {
		if len(profile.Spinners) == 0 {
			return upgrades, nil
		}
		spinner := profile.Spinners[0]

		next, ok := profile.NextLevel(spinner.Level)
		if !ok {
			u.log.Info("Spinner at max level", "level", spinner.Level)
			return upgrades, nil
		}
		if profile.Balance < next.Price {
			u.log.Info("Balance too low to upgrade",
				"level", spinner.Level,
				"balance", profile.Balance,
				"price", next.Price,
			)
			return upgrades, nil
		}

		u.log.Info("Upgrading spinner", "level", spinner.Level, "balance", profile.Balance, "price", next.Price)
		if err := u.svc.UpgradeSpinner(ctx, spinner.ID); err != nil {
			return upgrades, fmt.Errorf("upgrade spinner %d: %w", spinner.ID, err)
		}
		upgrades++

		fresh, err := u.svc.Profile(ctx)
		if err != nil {
			return upgrades, fmt.Errorf("reload profile: %w", err)
		}
		profile = fresh
	}

	u.log.Warn("Upgrade limit reached for this pass", "upgrades", upgrades)
	return upgrades, nil
}
