package conversation

import (
	"testing"
	"time"

	"github.com/ent0n29/buddy/internal/memory"
)

func TestClassifyCoreStates(t *testing.T) {
	c := NewRuleClassifier()

	cases := []struct {
		name    string
		message string
		want    State
	}{
		{"confusion wins over reflection", "I don't know what I want to do", StateConfused},
		{"validation question", "Am I good enough to become a doctor?", StateValidationSeeking},
		{"stated interest", "I enjoy debating a lot", StateSelfReflection},
		{"relationship boundary", "Should I date someone in my class?", StateOutOfScope},
		{"stream comparison", "Science or Commerce, which is better?", StateComparison},
		{"exam facts", "What exams do I need for engineering?", StateInformationSeeking},
		{"career curiosity", "What does a software engineer actually do?", StateCareerCuriosity},
		{"empty message", "", StateConfused},
		{"whitespace only", "   ", StateConfused},
		{"mental health boundary", "I've been feeling really depressed lately", StateOutOfScope},
		{"unrelated chatter", "What's your favorite cricket team?", StateOutOfScope},
		{"domain fallback", "Tell me something about commerce subjects", StateInformationSeeking},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := c.Classify(tc.message, nil, nil)
			if got != tc.want {
				t.Fatalf("Classify(%q) = %q, want %q", tc.message, got, tc.want)
			}
		})
	}
}

func TestClassifyPriorityOrderResolvesMultiSignal(t *testing.T) {
	c := NewRuleClassifier()

	// Carries an out-of-scope term and a validation phrase; safety wins.
	got := c.Classify("Should I become a doctor? My girlfriend says no", nil, nil)
	if got != StateOutOfScope {
		t.Fatalf("Classify() = %q, want %q", got, StateOutOfScope)
	}

	// Confusion and reflection signals together resolve to confusion.
	got = c.Classify("i'm not sure but i want to do something creative", nil, nil)
	if got != StateConfused {
		t.Fatalf("Classify() = %q, want %q", got, StateConfused)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewRuleClassifier()
	msg := "Am I smart enough for law?"
	first := c.Classify(msg, nil, nil)
	for i := 0; i < 10; i++ {
		if got := c.Classify(msg, nil, nil); got != first {
			t.Fatalf("Classify() changed between runs: %q then %q", first, got)
		}
	}
}

func TestClassifyComparisonContinuity(t *testing.T) {
	c := NewRuleClassifier()
	history := []Turn{{
		ID:        "t1",
		Message:   "science or commerce?",
		State:     StateComparison,
		CreatedAt: time.Now(),
	}}

	if got := c.Classify("which one", history, nil); got != StateComparison {
		t.Fatalf("Classify(follow-up) = %q, want %q", got, StateComparison)
	}

	// A long message is a new thought, not a follow-up.
	long := "which one of these would give me more time for my hobbies later on"
	if got := c.Classify(long, history, nil); got == StateComparison {
		t.Fatalf("Classify(long follow-up) = %q, want a fresh classification", got)
	}

	// No comparison in history means no continuity.
	if got := c.Classify("which one", nil, nil); got == StateComparison {
		t.Fatalf("Classify(no history) = %q, want non-comparison", got)
	}
}

func TestClassifyProfileKeepsKnownTopicInDomain(t *testing.T) {
	c := NewRuleClassifier()
	profile := memory.Snapshot{{Kind: memory.KindCareerDiscussed, Value: "medicine"}}

	if got := c.Classify("and medicine?", nil, profile); got != StateInformationSeeking {
		t.Fatalf("Classify(profile mention) = %q, want %q", got, StateInformationSeeking)
	}
	if got := c.Classify("and medicine?", nil, nil); got != StateOutOfScope {
		t.Fatalf("Classify(no profile) = %q, want %q", got, StateOutOfScope)
	}
}

func TestClassifyWordBoundaries(t *testing.T) {
	c := NewRuleClassifier()
	// "fight" must not fire inside "flight".
	if got := c.Classify("how much do flight attendant jobs pay", nil, nil); got == StateOutOfScope {
		t.Fatalf("Classify(flight) = %q, boundary term matched inside a word", got)
	}
}

func TestOutOfScopeTopic(t *testing.T) {
	c := NewRuleClassifier()
	topic, ok := c.OutOfScopeTopic("I feel so much anxiety about everything")
	if !ok || topic != "mental_health" {
		t.Fatalf("OutOfScopeTopic() = %q, %v, want mental_health, true", topic, ok)
	}
	if _, ok := c.OutOfScopeTopic("what about engineering colleges"); ok {
		t.Fatalf("OutOfScopeTopic() matched an in-domain message")
	}
}

func TestPriorityIsTotalOverStates(t *testing.T) {
	seen := make(map[int]State)
	for _, s := range PriorityOrder {
		p := s.Priority()
		if prev, dup := seen[p]; dup {
			t.Fatalf("states %q and %q share priority %d", prev, s, p)
		}
		seen[p] = s
	}
	if StateOutOfScope.Priority() != 1 {
		t.Fatalf("out_of_scope priority = %d, want 1", StateOutOfScope.Priority())
	}
	if State("unknown").Priority() != len(PriorityOrder)+1 {
		t.Fatalf("unknown state should sort last")
	}
}
