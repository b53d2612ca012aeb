package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/vietddude/spinner/internal/metrics"
)

const (
	DefaultAPIURL     = "https://api.timboo.pro"
	DefaultBackURL    = "https://back.timboo.pro"
	DefaultIPCheckURL = "https://api.ipify.org?format=json"
)

// Config holds game API endpoints and request settings.
type Config struct {
	APIURL     string            `yaml:"api_url"`
	BackURL    string            `yaml:"back_url"`
	IPCheckURL string            `yaml:"ip_check_url"`
	Timeout    time.Duration     `yaml:"timeout"`
	Headers    map[string]string `yaml:"headers"`
}

// DefaultHeaders are sent with every request unless overridden in Config.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":             "*/*",
		"Accept-Language":    "en-US,en;q=0.9",
		"Content-Type":       "application/json",
		"Origin":             "https://app.spinnercoin.org",
		"Referer":            "https://app.spinnercoin.org/",
		"Sec-Ch-Ua":          `"Not/A)Brand";v="99", "Google Chrome";v="115", "Chromium";v="115"`,
		"Sec-Ch-Ua-Mobile":   "?0",
		"Sec-Ch-Ua-Platform": `"Windows"`,
		"Sec-Fetch-Dest":     "empty",
		"Sec-Fetch-Mode":     "cors",
		"Sec-Fetch-Site":     "cross-site",
		"User-Agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36",
	}
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// Message extracts the server's "message" field from the error body, if any.
func (e *StatusError) Message() string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err != nil {
		return ""
	}
	return body.Message
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// HealthStatus is the rolling health of one client.
type HealthStatus struct {
	Requests      int
	Available     bool
	Latency       time.Duration
	ErrorRate     float64
	LastSuccessAt time.Time
	LastFailureAt time.Time
}

// Client talks to the game API through at most one outbound proxy.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int
}

// NewClient creates a client. An empty proxyURL means a direct connection.
func NewClient(cfg Config, proxyURL string) (*Client, error) {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.BackURL == "" {
		cfg.BackURL = DefaultBackURL
	}
	if cfg.IPCheckURL == "" {
		cfg.IPCheckURL = DefaultIPCheckURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Headers == nil {
		cfg.Headers = DefaultHeaders()
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
	}, nil
}

// CheckIP returns the egress IP seen by the outside world.
func (c *Client) CheckIP(ctx context.Context) (string, error) {
	var out struct {
		IP string `json:"ip"`
	}
	if err := c.do(ctx, http.MethodGet, c.cfg.IPCheckURL, "ip_check", nil, &out); err != nil {
		return "", err
	}
	if out.IP == "" {
		return "", fmt.Errorf("ip check returned no address")
	}
	return out.IP, nil
}

// GetHealth returns the client's health status.
func (c *Client) GetHealth() HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

// Close cleans up idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) postAPI(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, c.cfg.APIURL+path, path, body, out)
}

func (c *Client) postBack(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, c.cfg.BackURL+path, path, body, out)
}

// do sends one JSON request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, endpoint, label string, body, out any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure(label, "transport")
		return fmt.Errorf("%s: %w", label, err)
	}
	defer resp.Body.Close()

	metrics.APILatency.WithLabelValues(label).Observe(time.Since(start).Seconds())

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure(label, "read")
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordFailure(label, strconv.Itoa(resp.StatusCode))
		return fmt.Errorf("%s: %w", label, &StatusError{Code: resp.StatusCode, Body: string(respBody)})
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			c.recordFailure(label, "decode")
			return fmt.Errorf("parse %s response: %w", label, err)
		}
	}

	c.recordSuccess(label, resp.StatusCode, time.Since(start))
	return nil
}

func (c *Client) recordSuccess(label string, code int, latency time.Duration) {
	metrics.APICallsTotal.WithLabelValues(label, strconv.Itoa(code)).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.successCount++
	c.requestCount++
	c.health.Requests = c.requestCount
	c.totalLatency += latency
	c.health.LastSuccessAt = time.Now()
	c.health.Available = true

	c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)
	c.health.Latency = c.totalLatency / time.Duration(c.successCount)
}

func (c *Client) recordFailure(label, status string) {
	metrics.APICallsTotal.WithLabelValues(label, status).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount++
	c.requestCount++
	c.health.Requests = c.requestCount
	c.health.LastFailureAt = time.Now()
	c.health.ErrorRate = float64(c.failureCount) / float64(c.requestCount)

	if c.health.ErrorRate > 0.5 {
		c.health.Available = false
	}
}
