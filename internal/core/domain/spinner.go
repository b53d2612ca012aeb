package domain

import "time"

// SpinnerState is the server-side view of a spinner's resource counter.
// It is always read from the API and never derived from local arithmetic.
type SpinnerState struct {
	ID           int64
	HP           int
	Level        int
	Broken       bool
	RepairEndsAt time.Time // zero when no repair timer is running
}

// CanSpend reports whether the server currently accepts spins for this
// spinner. An exhausted spinner without a repair timer can still be
// repaired, so HP is deliberately not part of this check.
func (s SpinnerState) CanSpend() bool {
	return !s.Broken && s.RepairEndsAt.IsZero()
}

// Exhausted reports whether the spinner needs a repair before spinning.
func (s SpinnerState) Exhausted() bool {
	return s.HP <= 0
}

// Level describes the price of a spinner upgrade level.
type Level struct {
	Level int     `json:"level"`
	Price float64 `json:"price"`
}

// Profile is the account snapshot returned by the game backend.
type Profile struct {
	UserID   int64
	Balance  float64
	Spinners []SpinnerState
	Levels   []Level
	Sections []TaskSection
}

// NextLevel returns the level following current, if any.
func (p *Profile) NextLevel(current int) (Level, bool) {
	for _, l := range p.Levels {
		if l.Level == current+1 {
			return l, true
		}
	}
	return Level{}, false
}
