package control

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/spinner/internal/core/domain"
	"github.com/vietddude/spinner/internal/health"
	"github.com/vietddude/spinner/internal/infra/api"
	"github.com/vietddude/spinner/internal/infra/proxy"
	"github.com/vietddude/spinner/internal/infra/storage/memory"
	"github.com/vietddude/spinner/internal/spin"
)

// =============================================================================
// Mocks
// =============================================================================

type mockSession struct {
	mu sync.Mutex

	spinners   []domain.SpinnerState
	balance    float64
	levels     []domain.Level
	sections   []domain.TaskSection
	boxes      []domain.Box
	ipErr      error
	profileErr error
	spendErr   error

	spent    []int
	repairs  int
	upgrades int
	opened   []int64
	scoped   []int64
	closed   bool
}

func (m *mockSession) Spend(ctx context.Context, amount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.spendErr != nil {
		return m.spendErr
	}
	m.spent = append(m.spent, amount)
	return nil
}

func (m *mockSession) QueryState(ctx context.Context) (domain.SpinnerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spinners[0], nil
}

func (m *mockSession) Repair(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repairs++
	return nil
}

func (m *mockSession) Profile(ctx context.Context) (*domain.Profile, error) {
	if m.profileErr != nil {
		return nil, m.profileErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return &domain.Profile{
		Balance:  m.balance,
		Levels:   m.levels,
		Sections: m.sections,
		Spinners: append([]domain.SpinnerState(nil), m.spinners...),
	}, nil
}

func (m *mockSession) UpgradeSpinner(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upgrades++
	m.balance = 0
	m.spinners[0].Level++
	return nil
}

func (m *mockSession) ListBoxes(ctx context.Context) ([]domain.Box, error) {
	return m.boxes, nil
}

func (m *mockSession) OpenBox(ctx context.Context, id int64) (*domain.BoxReward, error) {
	m.opened = append(m.opened, id)
	return &domain.BoxReward{BoxID: id, Text: "10 SPN"}, nil
}

func (m *mockSession) CheckRequirement(ctx context.Context, id int64) (bool, error) {
	return true, nil
}

func (m *mockSession) StartAd(ctx context.Context) (string, error) { return "", nil }

func (m *mockSession) CompleteAd(ctx context.Context, hash string) (int64, error) { return 0, nil }

func (m *mockSession) Register(ctx context.Context) (*api.RegisterResult, error) {
	return &api.RegisterResult{AlreadyRegistered: true}, nil
}

func (m *mockSession) CheckIP(ctx context.Context) (string, error) {
	if m.ipErr != nil {
		return "", m.ipErr
	}
	return "198.51.100.1", nil
}

func (m *mockSession) ForSpinner(id int64) spin.ResourceService {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scoped = append(m.scoped, id)
	return &mockSpinnerView{mockSession: m, id: id}
}

func (m *mockSession) Health() api.HealthStatus {
	return api.HealthStatus{Requests: 4, Available: true, ErrorRate: 0.25}
}

func (m *mockSession) Close() error {
	m.closed = true
	return nil
}

// mockSpinnerView reads state for one spinner by ID.
type mockSpinnerView struct {
	*mockSession
	id int64
}

func (v *mockSpinnerView) QueryState(ctx context.Context) (domain.SpinnerState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, s := range v.spinners {
		if s.ID == v.id {
			return s, nil
		}
	}
	return domain.SpinnerState{}, api.ErrNoSpinner
}

type mockLeaser struct {
	held      map[string]bool
	released  []string
	refreshed []string
}

func (l *mockLeaser) AcquireLease(ctx context.Context, key string) (bool, error) {
	return !l.held[key], nil
}

func (l *mockLeaser) RefreshLease(ctx context.Context, key string) (bool, error) {
	l.refreshed = append(l.refreshed, key)
	return true, nil
}

func (l *mockLeaser) ReleaseLease(ctx context.Context, key string) error {
	l.released = append(l.released, key)
	return nil
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func newTestFarmer(t *testing.T, cfg Config, sessions map[string]*mockSession, proxies []string, opts ...Option) *Farmer {
	t.Helper()

	var accounts []domain.Account
	for _, label := range []string{"alice", "bob"} {
		if _, ok := sessions[label]; ok {
			accounts = append(accounts, domain.Account{Label: label, InitData: "init-" + label})
		}
	}

	pool, err := proxy.NewPool(proxy.StrategyIndex, proxies)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	factory := func(a domain.Account, proxyURL string) (AccountSession, error) {
		s, ok := sessions[a.Label]
		if !ok {
			return nil, errors.New("no session")
		}
		return s, nil
	}

	opts = append([]Option{WithSleeper(noSleep)}, opts...)
	return NewFarmer(cfg, memory.NewAccountRepo(accounts...), pool, factory, opts...)
}

// =============================================================================
// Tests
// =============================================================================

func TestFarmer_RunPass(t *testing.T) {
	alice := &mockSession{
		spinners: []domain.SpinnerState{{ID: 1, HP: 150, Level: 1}},
		boxes:    []domain.Box{{ID: 7, Name: "free"}},
	}
	bob := &mockSession{
		spinners: []domain.SpinnerState{{ID: 2, HP: 40}},
		ipErr:    errors.New("proxy refused"),
	}

	f := newTestFarmer(t, Config{ClaimBoxes: true},
		map[string]*mockSession{"alice": alice, "bob": bob},
		[]string{"http://p1:8080", "http://p2:8080"},
	)

	summary, err := f.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}

	if summary.Accounts != 2 || summary.Succeeded != 1 || summary.Skipped != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if summary.Spent != 150 {
		t.Errorf("expected 150 spent, got %d", summary.Spent)
	}

	total := 0
	for _, s := range alice.spent {
		total += s
	}
	if total != 150 {
		t.Errorf("expected alice to spend 150, got %d (%v)", total, alice.spent)
	}
	if alice.repairs != 1 {
		t.Errorf("expected one final repair, got %d", alice.repairs)
	}
	if len(alice.opened) != 1 || alice.opened[0] != 7 {
		t.Errorf("expected box 7 opened, got %v", alice.opened)
	}
	if !alice.closed {
		t.Error("expected session to be closed")
	}
	if len(bob.spent) != 0 {
		t.Errorf("expected skipped account not to spin, got %v", bob.spent)
	}

	report := f.Monitor().CheckHealth()
	if report.Accounts["bob"].Result != health.ResultSkipped {
		t.Errorf("expected bob skipped in health report, got %+v", report.Accounts["bob"])
	}
	if report.Accounts["alice"].IP != "198.51.100.1" {
		t.Errorf("expected alice ip recorded, got %+v", report.Accounts["alice"])
	}
}

func TestFarmer_SpinnerRepairStates(t *testing.T) {
	timer := time.Now().Add(time.Hour)
	s := &mockSession{
		spinners: []domain.SpinnerState{
			{ID: 1, HP: 0},
			{ID: 2, HP: 0, RepairEndsAt: timer},
			{ID: 3, HP: 10, Broken: true},
		},
	}

	f := newTestFarmer(t, Config{}, map[string]*mockSession{"alice": s}, nil)

	if _, err := f.RunPass(context.Background()); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if s.repairs != 1 {
		t.Errorf("expected exactly one repair for the idle empty spinner, got %d", s.repairs)
	}
	if len(s.spent) != 0 {
		t.Errorf("expected no spins, got %v", s.spent)
	}
}

func TestFarmer_AbortedCycleStillClaimsBoxes(t *testing.T) {
	s := &mockSession{
		spinners: []domain.SpinnerState{{ID: 1, HP: 50}},
		boxes:    []domain.Box{{ID: 3, Name: "free"}},
		spendErr: errors.New("connection reset"),
	}

	f := newTestFarmer(t, Config{ClaimBoxes: true}, map[string]*mockSession{"alice": s}, nil)

	summary, err := f.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("expected the account to fail, got %+v", summary)
	}
	if len(s.opened) != 1 {
		t.Errorf("expected box claimed despite the aborted cycle, got %v", s.opened)
	}
	if got := f.Monitor().CheckHealth().Accounts["alice"]; got.Error == "" {
		t.Errorf("expected abort error recorded, got %+v", got)
	}
}

func TestFarmer_SpinsEachSpinnerOnItsOwnState(t *testing.T) {
	s := &mockSession{
		spinners: []domain.SpinnerState{
			{ID: 1, HP: 0, RepairEndsAt: time.Now().Add(time.Hour)},
			{ID: 2, HP: 150},
		},
	}

	f := newTestFarmer(t, Config{}, map[string]*mockSession{"alice": s}, nil)

	summary, err := f.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if summary.Succeeded != 1 || summary.Spent != 150 {
		t.Errorf("expected the second spinner's full budget spent, got %+v", summary)
	}
	if len(s.scoped) != 1 || s.scoped[0] != 2 {
		t.Errorf("expected one executor scoped to spinner 2, got %v", s.scoped)
	}
	if got := f.Monitor().CheckHealth().Accounts["alice"]; got.APIRequests != 4 || got.APIErrorRate != 0.25 {
		t.Errorf("expected api health recorded, got %+v", got)
	}
}

func TestFarmer_TasksUseFarmerSleeper(t *testing.T) {
	s := &mockSession{
		spinners: []domain.SpinnerState{{ID: 1, HP: 0, RepairEndsAt: time.Now().Add(time.Hour)}},
		sections: []domain.TaskSection{{Title: "Daily", Tasks: []domain.Task{
			{Name: "visit", Requirements: []domain.Requirement{{ID: 3, Name: "visit"}}},
		}}},
	}

	var slept []time.Duration
	recorder := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	f := newTestFarmer(t, Config{DoTasks: true}, map[string]*mockSession{"alice": s}, nil,
		WithSleeper(recorder),
	)

	start := time.Now()
	if _, err := f.RunPass(context.Background()); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if len(slept) < 2 {
		t.Errorf("expected requirement and task pauses through the farmer sleeper, got %v", slept)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected no real sleeps, pass took %v", elapsed)
	}
}

func TestFarmer_Upgrade(t *testing.T) {
	s := &mockSession{
		spinners: []domain.SpinnerState{{ID: 1, HP: 0, RepairEndsAt: time.Now().Add(time.Hour), Level: 1}},
		balance:  500,
		levels:   []domain.Level{{Level: 2, Price: 100}, {Level: 3, Price: 1000}},
	}

	f := newTestFarmer(t, Config{Upgrade: true}, map[string]*mockSession{"alice": s}, nil)

	if _, err := f.RunPass(context.Background()); err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if s.upgrades != 1 {
		t.Errorf("expected one upgrade, got %d", s.upgrades)
	}
}

func TestFarmer_ProfileFailure(t *testing.T) {
	s := &mockSession{profileErr: errors.New("http 401")}

	f := newTestFarmer(t, Config{}, map[string]*mockSession{"alice": s}, nil)

	summary, err := f.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if summary.Failed != 1 {
		t.Errorf("expected one failed account, got %+v", summary)
	}
}

func TestFarmer_LeaseHeld(t *testing.T) {
	alice := &mockSession{spinners: []domain.SpinnerState{{ID: 1, HP: 20}}}
	bob := &mockSession{spinners: []domain.SpinnerState{{ID: 2, HP: 20}}}
	leaser := &mockLeaser{held: map[string]bool{"alice": true}}

	f := newTestFarmer(t, Config{},
		map[string]*mockSession{"alice": alice, "bob": bob}, nil,
		WithLeaser(leaser),
	)

	summary, err := f.RunPass(context.Background())
	if err != nil {
		t.Fatalf("RunPass failed: %v", err)
	}
	if summary.Skipped != 1 || summary.Succeeded != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if len(alice.spent) != 0 {
		t.Error("expected leased account to be skipped")
	}
	if len(leaser.released) != 1 || leaser.released[0] != "bob" {
		t.Errorf("expected bob's lease released, got %v", leaser.released)
	}
	if len(leaser.refreshed) != 1 || leaser.refreshed[0] != "bob" {
		t.Errorf("expected bob's lease refreshed once, got %v", leaser.refreshed)
	}
}

func TestFarmer_NoAccounts(t *testing.T) {
	f := newTestFarmer(t, Config{}, map[string]*mockSession{}, nil)

	if _, err := f.RunPass(context.Background()); err == nil {
		t.Fatal("expected error for empty account source")
	}
}

func TestFarmer_RunOnce(t *testing.T) {
	s := &mockSession{spinners: []domain.SpinnerState{{ID: 1, HP: 5}}}
	f := newTestFarmer(t, Config{}, map[string]*mockSession{"alice": s}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.Run(ctx, true); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(s.spent) != 1 || s.spent[0] != 5 {
		t.Errorf("expected a single 5 hp spin, got %v", s.spent)
	}
	if f.Monitor().CheckHealth().LastPass == nil {
		t.Error("expected last pass to be recorded")
	}
}

func TestFarmer_RunStopsOnCancel(t *testing.T) {
	s := &mockSession{spinners: []domain.SpinnerState{{ID: 1, HP: 0, RepairEndsAt: time.Now().Add(time.Hour)}}}
	f := newTestFarmer(t, Config{PassInterval: time.Hour}, map[string]*mockSession{"alice": s}, nil,
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			<-ctx.Done()
			return ctx.Err()
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, false) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestFarmer_Inspect(t *testing.T) {
	alice := &mockSession{}
	bob := &mockSession{ipErr: errors.New("timeout")}

	f := newTestFarmer(t, Config{}, map[string]*mockSession{"alice": alice, "bob": bob},
		[]string{"http://user:pw@p1:8080"},
	)

	infos, err := f.Inspect(context.Background(), true)
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 accounts, got %d", len(infos))
	}
	if infos[0].Proxy != "http://user:xxxxx@p1:8080" || infos[0].IP != "198.51.100.1" {
		t.Errorf("unexpected first account: %+v", infos[0])
	}
	if infos[1].Proxy != "direct" || infos[1].Err == nil {
		t.Errorf("unexpected second account: %+v", infos[1])
	}
}
