package control

import (
	"context"
	"fmt"

	"github.com/vietddude/spinner/internal/core/domain"
	"github.com/vietddude/spinner/internal/infra/api"
	"github.com/vietddude/spinner/internal/reward"
	"github.com/vietddude/spinner/internal/spin"
)

// AccountSession is everything a pass does against the API for one account.
type AccountSession interface {
	spin.ResourceService
	spin.UpgradeService
	reward.BoxService
	reward.TaskService

	// Register makes sure the account exists server-side
	Register(ctx context.Context) (*api.RegisterResult, error)

	// CheckIP returns the egress IP the API will see
	CheckIP(ctx context.Context) (string, error)

	// ForSpinner scopes state reads to one spinner
	ForSpinner(spinnerID int64) spin.ResourceService

	// Health reports request counts and error rate so far
	Health() api.HealthStatus

	// Close releases connections
	Close() error
}

// SessionFactory opens a session for an account routed through proxyURL.
type SessionFactory func(account domain.Account, proxyURL string) (AccountSession, error)

// Leaser keeps two farmer instances from driving the same account.
type Leaser interface {
	// AcquireLease returns false if another instance holds the account
	AcquireLease(ctx context.Context, accountKey string) (bool, error)

	// ReleaseLease drops a lease held by this instance
	ReleaseLease(ctx context.Context, accountKey string) error

	// RefreshLease extends a lease held by this instance
	RefreshLease(ctx context.Context, accountKey string) (bool, error)
}

// APISessionFactory builds sessions on the real HTTP client.
func APISessionFactory(cfg api.Config) SessionFactory {
	return func(account domain.Account, proxyURL string) (AccountSession, error) {
		client, err := api.NewClient(cfg, proxyURL)
		if err != nil {
			return nil, fmt.Errorf("create api client: %w", err)
		}
		return api.NewSession(client, account.InitData), nil
	}
}
