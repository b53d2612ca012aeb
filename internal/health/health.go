// Package health reports farmer liveness and per-account results over HTTP.
package health

import "time"

// SystemStatus represents the overall health state of the farmer.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// AccountResult is how an account's last pass ended.
type AccountResult string

const (
	ResultOK      AccountResult = "ok"
	ResultFailed  AccountResult = "failed"
	ResultSkipped AccountResult = "skipped"
)

// AccountHealth is the last known outcome for one account.
type AccountHealth struct {
	Name      string        `json:"name"`
	Proxy     string        `json:"proxy"`
	IP        string        `json:"ip,omitempty"`
	Result    AccountResult `json:"result"`
	Error     string        `json:"error,omitempty"`
	Spent     int           `json:"spent"`
	Boxes     int           `json:"boxes_claimed"`
	UpdatedAt time.Time     `json:"updated_at"`

	APIRequests  int     `json:"api_requests"`
	APIErrorRate float64 `json:"api_error_rate"`
	APIAvailable bool    `json:"api_available"`
}

// PassSummary describes one sweep over all accounts.
type PassSummary struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
	Accounts   int       `json:"accounts"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Spent      int       `json:"spent"`
}

// HealthReport contains the full health report.
type HealthReport struct {
	SystemStatus SystemStatus             `json:"system_status"`
	Running      bool                     `json:"running"`
	LastPass     *PassSummary             `json:"last_pass,omitempty"`
	Accounts     map[string]AccountHealth `json:"accounts"`
}
