package spin

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/spinner/internal/core/domain"
)

type fakeUpgradeService struct {
	level    int
	balance  float64
	levels   []domain.Level
	failCall int
	calls    int
}

func (f *fakeUpgradeService) profile() *domain.Profile {
	return &domain.Profile{
		Balance:  f.balance,
		Levels:   f.levels,
		Spinners: []domain.SpinnerState{{ID: 1, Level: f.level}},
	}
}

func (f *fakeUpgradeService) Profile(ctx context.Context) (*domain.Profile, error) {
	return f.profile(), nil
}

func (f *fakeUpgradeService) UpgradeSpinner(ctx context.Context, id int64) error {
	f.calls++
	if f.calls == f.failCall {
		return errors.New("http 500")
	}
	next, _ := f.profile().NextLevel(f.level)
	f.balance -= next.Price
	f.level++
	return nil
}

func TestUpgrader_Run(t *testing.T) {
	levels := []domain.Level{{Level: 2, Price: 100}, {Level: 3, Price: 300}, {Level: 4, Price: 1000}}

	tests := []struct {
		name      string
		balance   float64
		failCall  int
		want      int
		wantLevel int
		wantErr   bool
	}{
		{name: "buys until broke", balance: 500, want: 2, wantLevel: 3},
		{name: "reaches max level", balance: 5000, want: 3, wantLevel: 4},
		{name: "too poor", balance: 50, want: 0, wantLevel: 1},
		{name: "upgrade fails", balance: 500, failCall: 2, want: 1, wantLevel: 2, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeUpgradeService{level: 1, balance: tt.balance, levels: levels, failCall: tt.failCall}

			got, err := NewUpgrader(svc, nil).Run(context.Background(), svc.profile())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("upgrades = %d, want %d", got, tt.want)
			}
			if svc.level != tt.wantLevel {
				t.Errorf("level = %d, want %d", svc.level, tt.wantLevel)
			}
		})
	}
}
