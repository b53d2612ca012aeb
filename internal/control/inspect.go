package control

import (
	"context"
	"fmt"

	"github.com/vietddude/spinner/internal/core/domain"
	"github.com/vietddude/spinner/internal/infra/proxy"
)

// AccountInfo is a read-only view of an account and its route.
type AccountInfo struct {
	Index int
	Name  string
	Key   string
	Proxy string
	IP    string
	Err   error
}

// Inspect lists accounts with their proxy and, when checkIP is set, the
// egress IP seen through that proxy. Nothing is sent to the game API.
func (f *Farmer) Inspect(ctx context.Context, checkIP bool) ([]AccountInfo, error) {
	accounts, err := f.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	infos := make([]AccountInfo, 0, len(accounts))
	for _, account := range accounts {
		proxyURL := f.proxyFor(account)
		info := AccountInfo{
			Index: account.Index,
			Name:  account.DisplayName(),
			Key:   account.Key(),
			Proxy: proxy.Redact(proxyURL),
		}

		if checkIP {
			info.IP, info.Err = f.checkIP(ctx, account, proxyURL)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (f *Farmer) checkIP(ctx context.Context, account domain.Account, proxyURL string) (string, error) {
	session, err := f.sessions(account, proxyURL)
	if err != nil {
		return "", err
	}
	defer session.Close()
	return session.CheckIP(ctx)
}
