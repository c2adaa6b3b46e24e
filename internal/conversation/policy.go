package conversation

// ResponsePolicy is the behavioral directive for one state: what a reply
// must aim for, what moves it may and may not make, and how many direct
// questions it may ask. The table below is authored data, loaded once, and
// is the single source of truth for per-state behavior.
type ResponsePolicy struct {
	State          State
	Goal           string
	Allowed        []string
	Forbidden      []string
	MaxQuestions   int
	ShallowFirst   bool
	NeedsKnowledge bool
}

var policyTable = map[State]ResponsePolicy{
	StateOutOfScope: {
		State:        StateOutOfScope,
		Goal:         "Set the boundary without breaking trust",
		Allowed:      []string{"Acknowledge", "Redirect gently", "Leave the door open for career talk"},
		Forbidden:    []string{"Scold", "Explain policy", "Continue the topic"},
		MaxQuestions: 0,
	},
	StateConfused: {
		State:        StateConfused,
		Goal:         "Reduce pressure",
		Allowed:      []string{"Normalize confusion", "Ask one very easy question", "Be warm and supportive"},
		Forbidden:    []string{"List careers", "Give advice", "Overwhelm with options"},
		MaxQuestions: 1,
		ShallowFirst: true,
	},
	StateValidationSeeking: {
		State:        StateValidationSeeking,
		Goal:         "Remove judgment",
		Allowed:      []string{"Reframe away from ability", "Redirect to exploration", "Encourage without promising"},
		Forbidden:    []string{"Say yes or no directly", "Predict success or failure", "Give false assurance"},
		MaxQuestions: 1,
		ShallowFirst: true,
	},
	StateSelfReflection: {
		State:        StateSelfReflection,
		Goal:         "Deepen awareness and trust",
		Allowed:      []string{"Acknowledge the insight", "Reflect it back", "Ask one gentle follow-up"},
		Forbidden:    []string{"Label the student", "Jump to careers immediately", "Make assumptions"},
		MaxQuestions: 1,
		ShallowFirst: true,
	},
	StateCareerCuriosity: {
		State:          StateCareerCuriosity,
		Goal:           "Provide realistic exposure",
		Allowed:        []string{"Explain day-to-day work", "Describe what it feels like", "End with a reflection question"},
		Forbidden:      []string{"Hype prestige or status", "Start with salary", "Oversell the career"},
		MaxQuestions:   1,
		ShallowFirst:   true,
		NeedsKnowledge: true,
	},
	StateComparison: {
		State:          StateComparison,
		Goal:           "Explain trade-offs",
		Allowed:        []string{"Compare the nature of the work", "Stay neutral", "Ask a preference-based question"},
		Forbidden:      []string{"Rank options", "Recommend one over the other", "Judge difficulty"},
		MaxQuestions:   1,
		ShallowFirst:   true,
		NeedsKnowledge: true,
	},
	StateInformationSeeking: {
		State:          StateInformationSeeking,
		Goal:           "Provide clarity without overload",
		Allowed:        []string{"Give basic facts", "Keep it concise", "Offer to go deeper if interested"},
		Forbidden:      []string{"Dump long lists", "Push decisions", "Overwhelm with data"},
		MaxQuestions:   1,
		ShallowFirst:   true,
		NeedsKnowledge: true,
	},
}

// PolicyFor is a pure total lookup: every state in PriorityOrder has exactly
// one policy and unknown states resolve like INFORMATION_SEEKING, so callers
// never handle a missing case.
func PolicyFor(state State) ResponsePolicy {
	if p, ok := policyTable[state]; ok {
		return p
	}
	return policyTable[StateInformationSeeking]
}
