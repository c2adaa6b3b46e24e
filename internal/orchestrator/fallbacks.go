package orchestrator

import (
	"github.com/ent0n29/buddy/internal/conversation"
	"github.com/ent0n29/buddy/internal/guardrail"
)

// Canned replies used when generation fails or every regeneration attempt
// is rejected. Each one is pre-vetted against the guardrail checklist, so
// releasing it never needs another validation round.
var cannedFallbacks = map[conversation.State]string{
	conversation.StateConfused: "That's completely okay, lots of students feel this way. " +
		"There's no rush to figure everything out right now. " +
		"What's one thing you did recently that you actually enjoyed?",
	conversation.StateValidationSeeking: "That question says a lot about how much you care, and caring is a real strength. " +
		"Nobody can predict how things turn out, but ability grows with practice far more than people expect. " +
		"What draws you toward this path in the first place?",
	conversation.StateSelfReflection: "Thanks for sharing that, it's genuinely useful to know about yourself. " +
		"Noticing what you enjoy is exactly how good decisions start. " +
		"What do you think makes it feel that way for you?",
	conversation.StateCareerCuriosity: "That's a great thing to be curious about. " +
		"I'm having a little trouble pulling up the details right now, but I'd love to explore it with you. " +
		"What made you think of this career?",
	conversation.StateComparison: "Both paths have real strengths, and the right one depends on what kind of work feels right to you rather than which is objectively better. " +
		"Which of the two feels closer to the things you already enjoy?",
	conversation.StateInformationSeeking: "I want to get those details right for you, and I'm having trouble pulling them up at the moment. " +
		"Could you try asking again in a little while?",
}

// FallbackFor returns the canned reply for a state. OUT_OF_SCOPE never
// reaches generation, so its fallback is the canonical boundary text.
func FallbackFor(state conversation.State) string {
	if state == conversation.StateOutOfScope {
		return guardrail.CanonicalOutOfScope
	}
	if text, ok := cannedFallbacks[state]; ok {
		return text
	}
	return cannedFallbacks[conversation.StateInformationSeeking]
}
