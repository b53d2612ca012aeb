package proxy

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/vietddude/spinner/internal/infra/storage/file"
)

// Strategy defines how accounts are mapped to proxies.
type Strategy string

const (
	// StrategyIndex binds account i to proxy i; accounts past the end of
	// the list connect directly.
	StrategyIndex Strategy = "index"
	// StrategyRoundRobin wraps around the list so every account gets one.
	StrategyRoundRobin Strategy = "round_robin"
)

// Pool holds the outbound proxies and assigns them to accounts.
type Pool struct {
	mu       sync.RWMutex
	strategy Strategy
	proxies  []string
}

// NewPool creates a pool from proxy URLs. Entries without a scheme are
// treated as http proxies.
func NewPool(strategy Strategy, proxies []string) (*Pool, error) {
	if strategy == "" {
		strategy = StrategyIndex
	}
	if strategy != StrategyIndex && strategy != StrategyRoundRobin {
		return nil, fmt.Errorf("unknown proxy strategy %q", strategy)
	}

	normalized := make([]string, 0, len(proxies))
	for i, p := range proxies {
		n, err := Normalize(p)
		if err != nil {
			return nil, fmt.Errorf("proxy %d: %w", i+1, err)
		}
		normalized = append(normalized, n)
	}

	return &Pool{strategy: strategy, proxies: normalized}, nil
}

// LoadFile builds a pool from a file with one proxy per line. An empty
// path or a file that does not exist yields an empty pool, so every
// account connects directly.
func LoadFile(path string, strategy Strategy) (*Pool, error) {
	if path == "" {
		return NewPool(strategy, nil)
	}
	lines, err := file.ReadLines(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Proxy file not found, all accounts connect directly", "path", path)
		return NewPool(strategy, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load proxies: %w", err)
	}
	return NewPool(strategy, lines)
}

// Assign returns the proxy for the account at index, or "" for a direct
// connection.
func (p *Pool) Assign(index int) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.proxies) == 0 || index < 0 {
		return ""
	}

	switch p.strategy {
	case StrategyRoundRobin:
		return p.proxies[index%len(p.proxies)]
	default:
		if index >= len(p.proxies) {
			return ""
		}
		return p.proxies[index]
	}
}

// Len returns the number of proxies.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.proxies)
}

// Normalize validates a proxy URL and adds the http scheme when missing.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty proxy")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse proxy: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("proxy %q has no host", raw)
	}
	switch u.Scheme {
	case "http", "https", "socks5":
	default:
		return "", fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	return u.String(), nil
}

// Redact hides proxy credentials for logging.
func Redact(raw string) string {
	if raw == "" {
		return "direct"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "invalid"
	}
	return u.Redacted()
}
