// Package file reads accounts from a plain-text file with one initData
// string per line.
package file

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/vietddude/spinner/internal/core/domain"
	"github.com/vietddude/spinner/internal/infra/storage"
)

// AccountRepo implements storage.AccountRepository over a data file.
type AccountRepo struct {
	path string
	mu   sync.Mutex
}

// NewAccountRepo creates a repository backed by path.
func NewAccountRepo(path string) *AccountRepo {
	return &AccountRepo{path: path}
}

// List reads the file on every call so edits are picked up between passes.
func (r *AccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines, err := ReadLines(r.path)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s: %w", r.path, storage.ErrNoAccounts)
	}

	accounts := make([]domain.Account, 0, len(lines))
	for i, line := range lines {
		accounts = append(accounts, domain.Account{Index: i, InitData: line})
	}
	return accounts, nil
}

// Save appends the account's initData unless an identical line exists.
func (r *AccountRepo) Save(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	lines, err := ReadLines(r.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, line := range lines {
		if line == account.InitData {
			return nil
		}
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", r.path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, account.InitData); err != nil {
		return fmt.Errorf("write %s: %w", r.path, err)
	}
	return nil
}

// ReadLines returns the non-blank lines of path with CR and surrounding
// whitespace removed.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.ReplaceAll(scanner.Text(), "\r", ""))
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}
