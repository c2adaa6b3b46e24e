package conversation

import "testing"

func TestPolicyForCoversEveryState(t *testing.T) {
	for _, state := range PriorityOrder {
		p := PolicyFor(state)
		if p.State != state {
			t.Fatalf("PolicyFor(%q).State = %q", state, p.State)
		}
		if p.Goal == "" || len(p.Allowed) == 0 || len(p.Forbidden) == 0 {
			t.Fatalf("policy for %q is incomplete: %+v", state, p)
		}
	}
}

func TestPolicyQuestionBudgets(t *testing.T) {
	if got := PolicyFor(StateOutOfScope).MaxQuestions; got != 0 {
		t.Fatalf("out_of_scope MaxQuestions = %d, want 0", got)
	}
	for _, state := range PriorityOrder[1:] {
		if got := PolicyFor(state).MaxQuestions; got != 1 {
			t.Fatalf("%q MaxQuestions = %d, want 1", state, got)
		}
	}
}

func TestPolicyKnowledgeStates(t *testing.T) {
	needs := map[State]bool{
		StateCareerCuriosity:    true,
		StateComparison:         true,
		StateInformationSeeking: true,
	}
	for _, state := range PriorityOrder {
		if got := PolicyFor(state).NeedsKnowledge; got != needs[state] {
			t.Fatalf("%q NeedsKnowledge = %v, want %v", state, got, needs[state])
		}
	}
}

func TestPolicyForUnknownStateFallsBack(t *testing.T) {
	p := PolicyFor(State("made_up"))
	if p.State != StateInformationSeeking {
		t.Fatalf("unknown state resolved to %q, want %q", p.State, StateInformationSeeking)
	}
}
