package spin

import "errors"

var (
	// ErrRejected is returned by a ResourceService when the server refused a
	// spend, usually because local and remote HP drifted apart.
	ErrRejected = errors.New("spend rejected")

	// ErrSpendDisallowed means the server reports the spinner cannot spin
	// right now (broken or repair timer running).
	ErrSpendDisallowed = errors.New("spending disallowed")

	// ErrExhausted means the spinner has no HP left.
	ErrExhausted = errors.New("spinner exhausted")

	// ErrRepairFailed means a repair did not restore any HP.
	ErrRepairFailed = errors.New("repair failed")

	// ErrTransport wraps any other failure talking to the service.
	ErrTransport = errors.New("transport error")

	// ErrInvalidCap is returned for a per-spin cap below 1.
	ErrInvalidCap = errors.New("cap must be at least 1")

	// ErrInvalidBudget is returned for a negative budget.
	ErrInvalidBudget = errors.New("budget must not be negative")

	// ErrPartitionInvariant signals a bug in the partitioner.
	ErrPartitionInvariant = errors.New("partition invariant violated")
)
