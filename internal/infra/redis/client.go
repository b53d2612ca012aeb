package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// DefaultLeaseTTL bounds how long a crashed farmer can hold an account.
const DefaultLeaseTTL = 2 * time.Hour

// Client wraps Redis operations for account leases.
type Client struct {
	rdb   *redis.Client
	owner string
	ttl   time.Duration
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	LeaseTTL time.Duration `yaml:"lease_ttl"`
}

// releaseScript deletes the key only if this owner still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends the TTL only if this owner still holds the key.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// NewClient creates a new Redis client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.LeaseTTL
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}

	return &Client{rdb: rdb, owner: uuid.NewString(), ttl: ttl}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Owner returns the token this process writes into its leases.
func (c *Client) Owner() string {
	return c.owner
}

func leaseKey(accountKey string) string {
	return fmt.Sprintf("spinner:lease:%s", accountKey)
}

// AcquireLease claims an account for this process. It returns false when
// another process holds it.
func (c *Client) AcquireLease(ctx context.Context, accountKey string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, leaseKey(accountKey), c.owner, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// ReleaseLease drops the lease if this process still owns it.
func (c *Client) ReleaseLease(ctx context.Context, accountKey string) error {
	if err := releaseScript.Run(ctx, c.rdb, []string{leaseKey(accountKey)}, c.owner).Err(); err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// RefreshLease extends the lease TTL if this process still owns it.
func (c *Client) RefreshLease(ctx context.Context, accountKey string) (bool, error) {
	n, err := refreshScript.Run(ctx, c.rdb, []string{leaseKey(accountKey)}, c.owner, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("refresh lease: %w", err)
	}
	return n == 1, nil
}
