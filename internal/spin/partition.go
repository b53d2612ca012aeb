package spin

import (
	"fmt"
	"math/rand"
	"time"
)

// DefaultMaxPerSpin is the largest amount the server accepts in one spin.
const DefaultMaxPerSpin = 99

// Partitioner splits an HP budget into randomized spin sizes.
//
// Sizes are randomized rather than emitted as cap, cap, ..., remainder so
// the sequence has no fixed shape. Only the post-conditions are
// guaranteed: every size is in [1, cap], the sizes sum to the budget, and
// there are at least ceil(total/cap) of them.
type Partitioner struct {
	limit int
	rng   *rand.Rand
}

// NewPartitioner creates a partitioner. A nil rng is seeded from the clock.
func NewPartitioner(limit int, rng *rand.Rand) (*Partitioner, error) {
	if limit < 1 {
		return nil, ErrInvalidCap
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Partitioner{limit: limit, rng: rng}, nil
}

// Split partitions total into spin sizes.
func (p *Partitioner) Split(total int) ([]int, error) {
	if total < 0 {
		return nil, ErrInvalidBudget
	}
	if total == 0 {
		return []int{}, nil
	}

	minCount := (total + p.limit - 1) / p.limit
	slots := make([]int, minCount)
	for i := range slots {
		slots[i] = 1
	}

	slots = p.fill(slots, total-minCount)

	for i, s := range slots {
		if s < 1 || s > p.limit {
			return nil, fmt.Errorf("%w: slot %d holds %d (cap %d)", ErrPartitionInvariant, i, s, p.limit)
		}
	}

	if remaining := total - sum(slots); remaining > 0 {
		slots = p.fill(slots, remaining)
	}

	if got := sum(slots); got != total {
		return nil, fmt.Errorf("%w: sum %d, want %d", ErrPartitionInvariant, got, total)
	}
	return slots, nil
}

// fill distributes remaining over slots with headroom, one random chunk per
// slot per pass. When every slot is saturated it appends a new slot.
func (p *Partitioner) fill(slots []int, remaining int) []int {
	for remaining > 0 {
		progressed := false
		for i := 0; i < len(slots) && remaining > 0; i++ {
			headroom := p.limit - slots[i]
			if headroom <= 0 {
				continue
			}
			add := 1 + p.rng.Intn(min(headroom, remaining))
			slots[i] += add
			remaining -= add
			progressed = true
		}

		if !progressed {
			extra := min(remaining, p.limit)
			slots = append(slots, extra)
			remaining -= extra
		}
	}
	return slots
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
