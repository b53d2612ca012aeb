// Package reward decides when gated rewards can be claimed and claims them.
package reward

import (
	"strconv"
	"strings"
	"time"
)

// DefaultBoxCooldown is the wait between two openings of the same box.
const DefaultBoxCooldown = 7 * time.Hour

// Eligibility is the claim decision for one gate.
type Eligibility struct {
	CanClaim bool

	// NextTime is when the gate opens again. Zero for a gate that was
	// never opened.
	NextTime time.Time

	// Remaining is the wait until NextTime. Zero when claimable.
	Remaining time.Duration
}

// Check computes eligibility for a gate last opened at openTime. A zero
// openTime means the gate is open. All arithmetic is done in UTC; convert
// to a display zone only when rendering.
func Check(openTime, now time.Time, cooldown time.Duration) Eligibility {
	if openTime.IsZero() {
		return Eligibility{CanClaim: true}
	}

	openTime = openTime.UTC()
	now = now.UTC()

	elapsed := now.Sub(openTime)
	next := openTime.Add(cooldown)

	if elapsed >= cooldown {
		return Eligibility{CanClaim: true, NextTime: next}
	}
	return Eligibility{NextTime: next, Remaining: cooldown - elapsed}
}

// FormatRemaining renders d as whole hours, minutes and seconds, each
// floored, skipping zero components ("6h 5s"). Durations under a second
// render as "0s".
func FormatRemaining(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}

	hours := int64(d / time.Hour)
	minutes := int64(d % time.Hour / time.Minute)
	seconds := int64(d % time.Minute / time.Second)

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, strconv.FormatInt(hours, 10)+"h")
	}
	if minutes > 0 {
		parts = append(parts, strconv.FormatInt(minutes, 10)+"m")
	}
	if seconds > 0 {
		parts = append(parts, strconv.FormatInt(seconds, 10)+"s")
	}
	return strings.Join(parts, " ")
}

// FormatLocal renders t in loc for display.
func FormatLocal(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("02/01/2006 15:04:05")
}
