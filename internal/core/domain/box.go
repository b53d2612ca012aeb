package domain

import "time"

// Box is a time-gated reward. A zero OpenTime means it has never been
// opened and can be claimed immediately.
type Box struct {
	ID       int64
	Name     string
	OpenTime time.Time
}

// BoxReward is the result of opening a box.
type BoxReward struct {
	BoxID int64
	Text  string
}
