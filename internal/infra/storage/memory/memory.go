package memory

import (
	"context"
	"sync"

	"github.com/vietddude/spinner/internal/core/domain"
)

// AccountRepo keeps accounts in process memory.
type AccountRepo struct {
	mu       sync.RWMutex
	accounts []domain.Account
}

func NewAccountRepo(accounts ...domain.Account) *AccountRepo {
	r := &AccountRepo{}
	for i := range accounts {
		_ = r.Save(context.Background(), &accounts[i])
	}
	return r
}

func (r *AccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Account, len(r.accounts))
	copy(out, r.accounts)
	return out, nil
}

func (r *AccountRepo) Save(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := account.Key()
	for i := range r.accounts {
		if r.accounts[i].Key() == key {
			index := r.accounts[i].Index
			r.accounts[i] = *account
			r.accounts[i].Index = index
			return nil
		}
	}

	a := *account
	a.Index = len(r.accounts)
	r.accounts = append(r.accounts, a)
	return nil
}
