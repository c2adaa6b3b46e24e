package conversation

import "time"

// State is the single active behavioral classification for one message.
// It is recomputed from scratch every turn and never persisted as a
// "current state" session field.
type State string

const (
	StateOutOfScope        State = "out_of_scope"
	StateConfused          State = "confused"
	StateValidationSeeking State = "validation_seeking"
	StateSelfReflection    State = "self_reflection"
	StateCareerCuriosity   State = "career_curiosity"
	StateComparison        State = "comparison"
	StateInformationSeeking State = "information_seeking"
)

// PriorityOrder is the fixed total order used to resolve multi-signal
// messages: the earliest matching state wins. Safety > trust > reflection
// > exploration > information. This ordering is a correctness contract.
var PriorityOrder = []State{
	StateOutOfScope,
	StateConfused,
	StateValidationSeeking,
	StateSelfReflection,
	StateCareerCuriosity,
	StateComparison,
	StateInformationSeeking,
}

// Priority returns the 1-based priority index of s, lower is stronger.
// Unknown states sort last.
func (s State) Priority() int {
	for i, st := range PriorityOrder {
		if st == s {
			return i + 1
		}
	}
	return len(PriorityOrder) + 1
}

func (s State) String() string { return string(s) }

// Turn is one completed exchange. Immutable after release; retained only
// inside the session history window.
type Turn struct {
	ID        string    `json:"turn_id"`
	StudentID string    `json:"student_id"`
	Message   string    `json:"message"`
	State     State     `json:"state"`
	Released  string    `json:"released"`
	Terminal  string    `json:"terminal"`
	CreatedAt time.Time `json:"created_at"`
}
