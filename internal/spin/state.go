package spin

// state is the closed set of executor states. Transitions happen by
// returning a new state value; the work queue is owned by running and
// resuming and is replaced wholesale on re-partition.
type state interface {
	name() string
}

type running struct {
	index int
	queue []int
}

type awaitingRepair struct {
	reason string
}

type resuming struct {
	hp     int
	queue  []int
	reason string
}

type done struct{}

type aborted struct {
	err error
}

func (running) name() string        { return "running" }
func (awaitingRepair) name() string { return "awaiting_repair" }
func (resuming) name() string       { return "resuming" }
func (done) name() string           { return "done" }
func (aborted) name() string        { return "aborted" }

// Outcome is how a spin cycle ended.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeAborted Outcome = "aborted"
)
