package postgres

import (
	"context"
	"fmt"

	"github.com/vietddude/spinner/internal/core/domain"
)

type accountRow struct {
	ID       int64  `db:"id"`
	Label    string `db:"label"`
	InitData string `db:"init_data"`
	ProxyURL string `db:"proxy_url"`
}

// AccountRepo implements storage.AccountRepository using PostgreSQL.
type AccountRepo struct {
	db *DB
}

// NewAccountRepo creates a new PostgreSQL account repository.
func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

const listAccounts = `
SELECT id, label, init_data, proxy_url
FROM accounts
WHERE enabled
ORDER BY id`

// List retrieves all enabled accounts. Index follows row order.
func (r *AccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	var rows []accountRow
	if err := r.db.SelectContext(ctx, &rows, listAccounts); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]domain.Account, 0, len(rows))
	for i, row := range rows {
		accounts = append(accounts, domain.Account{
			Index:    i,
			Label:    row.Label,
			InitData: row.InitData,
			ProxyURL: row.ProxyURL,
		})
	}
	return accounts, nil
}

const upsertAccount = `
INSERT INTO accounts (label, init_data, proxy_url)
VALUES (:label, :init_data, :proxy_url)
ON CONFLICT (label) DO UPDATE
SET init_data = EXCLUDED.init_data,
    proxy_url = EXCLUDED.proxy_url,
    enabled = TRUE,
    updated_at = NOW()`

// Save inserts an account or refreshes the one with the same label.
func (r *AccountRepo) Save(ctx context.Context, account *domain.Account) error {
	label := account.Label
	if label == "" {
		label = account.Key()
	}

	row := accountRow{
		Label:    label,
		InitData: account.InitData,
		ProxyURL: account.ProxyURL,
	}
	if _, err := r.db.NamedExecContext(ctx, upsertAccount, row); err != nil {
		return fmt.Errorf("failed to save account %s: %w", row.Label, err)
	}
	return nil
}
