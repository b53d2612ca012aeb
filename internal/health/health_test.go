package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMonitor_Status(t *testing.T) {
	base := time.Date(2024, 10, 11, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		pass *PassSummary
		now  time.Time
		want SystemStatus
	}{
		{
			name: "starting up",
			now:  base.Add(time.Minute),
			want: StatusHealthy,
		},
		{
			name: "all accounts ok",
			pass: &PassSummary{Accounts: 3, Succeeded: 3, FinishedAt: base},
			now:  base.Add(time.Hour),
			want: StatusHealthy,
		},
		{
			name: "some accounts failed",
			pass: &PassSummary{Accounts: 3, Succeeded: 2, Failed: 1, FinishedAt: base},
			now:  base.Add(time.Hour),
			want: StatusDegraded,
		},
		{
			name: "every account failed",
			pass: &PassSummary{Accounts: 2, Failed: 2, FinishedAt: base},
			now:  base.Add(time.Hour),
			want: StatusCritical,
		},
		{
			name: "stale loop",
			pass: &PassSummary{Accounts: 1, Succeeded: 1, FinishedAt: base},
			now:  base.Add(20 * time.Hour),
			want: StatusCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(7 * time.Hour)
			m.started = base
			m.now = func() time.Time { return tt.now }
			if tt.pass != nil {
				m.PassFinished(*tt.pass)
			}

			if got := m.CheckHealth().SystemStatus; got != tt.want {
				t.Errorf("status = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestServer_Health(t *testing.T) {
	m := NewMonitor(7 * time.Hour)
	m.PassFinished(PassSummary{ID: "p1", Accounts: 2, Failed: 2, FinishedAt: time.Now()})
	m.RecordAccount("1", AccountHealth{Name: "alice", Result: ResultFailed})

	srv := NewServer(m, 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/detailed", nil))

	var report HealthReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Accounts["1"].Name != "alice" {
		t.Errorf("expected account alice in report, got %+v", report.Accounts)
	}
	if report.LastPass == nil || report.LastPass.ID != "p1" {
		t.Errorf("expected last pass p1, got %+v", report.LastPass)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv := NewServer(NewMonitor(time.Hour), 0)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", rec.Code)
	}
}
