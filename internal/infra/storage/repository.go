package storage

import (
	"context"
	"errors"

	"github.com/vietddude/spinner/internal/core/domain"
)

var (
	// ErrNoAccounts is returned when a source yields no usable account.
	ErrNoAccounts = errors.New("no accounts found")
)

// AccountRepository supplies the accounts a pass iterates over.
type AccountRepository interface {
	// List returns enabled accounts ordered by index
	List(ctx context.Context) ([]domain.Account, error)

	// Save adds an account or updates the one with the same label
	Save(ctx context.Context, account *domain.Account) error
}
