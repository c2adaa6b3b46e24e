package conversation

import (
	"regexp"
	"strings"

	"github.com/ent0n29/buddy/internal/memory"
)

// Classifier maps one student message to exactly one State. Implementations
// must never fail: indeterminate input resolves through the priority order,
// never through an error.
type Classifier interface {
	Classify(message string, history []Turn, profile memory.Snapshot) State
}

// Topics that end the turn immediately: mental health, relationships, family
// conflict, politics/religion, explicit content, violence. Matched on word
// boundaries so "fight" does not fire on "flight fares".
var outOfScopeTopics = map[string][]string{
	"mental_health": {
		"depressed", "depression", "anxiety", "anxious", "suicide",
		"self-harm", "self harm", "cutting", "kill myself", "want to die",
		"panic attack", "mental health", "therapy", "therapist",
		"stressed", "overwhelmed", "can't cope", "breaking down",
	},
	"relationships": {
		"boyfriend", "girlfriend", "dating", "date someone", "go on a date",
		"ask out", "crush", "love life", "breakup", "broke up",
		"relationship advice", "my ex", "cheating", "cheated",
	},
	"family": {
		"parents fighting", "divorce", "family problems", "abuse",
		"hitting me", "beats me", "scared of my parents",
	},
	"politics_religion": {
		"politics", "political", "election", "vote", "government",
		"religion", "religious", "pray", "caste", "reservation",
	},
	"explicit": {
		"sex", "porn", "naked", "nude",
	},
	"violence": {
		"fight", "violence", "weapon", "gun", "knife", "hurt someone",
	},
}

var confusionSignals = []string{
	"i don't know", "i dont know", "idk",
	"i'm confused", "im confused", "confused",
	"i have no idea", "no idea",
	"i'm lost", "im lost",
	"what should i do", "help me",
	"i'm not sure", "im not sure", "not sure",
	"don't understand", "dont understand",
	"no clue", "clueless",
}

var validationSignals = []string{
	"am i good enough", "can i become", "will i be able to",
	"is it bad if", "is it okay if", "is it wrong",
	"should i", "do you think i can",
	"am i smart enough", "am i capable",
	"is it too late", "is it possible for me",
	"can someone like me", "people like me",
	"am i making a mistake", "is this a bad choice",
}

var reflectionSignals = []string{
	"i like", "i love", "i enjoy",
	"i hate", "i don't like", "i dont like", "i dislike",
	"i'm good at", "im good at", "i am good at",
	"i'm bad at", "im bad at", "i am bad at",
	"i prefer", "i find", "i feel",
	"interests me", "bores me",
	"i want to", "i wish", "i hope",
}

// Strong first-person preference phrases keep SELF_REFLECTION even when the
// message also reads like a question.
var strongReflectionSignals = []string{
	"i like", "i love", "i enjoy", "i hate", "i dislike",
	"i'm good at", "im good at", "i prefer",
}

var curiositySignals = []string{
	"what does a", "what do", "tell me about",
	"how to become", "how do i become",
	"what is it like to be", "what's it like", "whats it like",
	"career in", "job as", "work as",
	"day in the life", "typical day",
}

var comparisonSignals = []string{
	" vs ", " versus ", " or ",
	"which is better", "what's better", "whats better",
	"difference between", "compare",
	"should i choose", "better option",
}

var informationSignals = []string{
	"how much", "salary", "pay", "income", "earn",
	"entrance exam", "exam", "jee", "neet", "clat",
	"college", "university", "iit", "nit", "aiims",
	"fee", "fees", "cost", "tuition",
	"eligibility", "qualification", "degree", "required",
	"duration", "how long",
}

// Generic domain vocabulary used only for the final fallback decision.
var domainSignals = []string{
	"career", "careers", "job", "jobs", "work", "profession", "study",
	"studies", "studying", "school", "subject", "subjects", "stream",
	"course", "courses", "skill", "skills", "future", "engineer",
	"doctor", "lawyer", "teacher", "science", "commerce", "arts",
}

var comparisonFollowUpSignals = []string{
	"which one", "which", "better", "what about", "between them", "of those",
}

// RuleClassifier is the default deterministic implementation. A model-backed
// classifier can sit behind the same interface, but its output must still be
// forced into the seven-state set with the same priority tie-break.
type RuleClassifier struct {
	outOfScope map[string][]*regexp.Regexp
}

func NewRuleClassifier() *RuleClassifier {
	compiled := make(map[string][]*regexp.Regexp, len(outOfScopeTopics))
	for topic, terms := range outOfScopeTopics {
		res := make([]*regexp.Regexp, 0, len(terms))
		for _, term := range terms {
			res = append(res, regexp.MustCompile(`\b`+regexp.QuoteMeta(term)+`\b`))
		}
		compiled[topic] = res
	}
	return &RuleClassifier{outOfScope: compiled}
}

// Classify evaluates every state predicate and returns the strongest match
// under PriorityOrder. It always returns a member of the seven-state set.
func (c *RuleClassifier) Classify(message string, history []Turn, profile memory.Snapshot) State {
	text := normalize(message)
	if text == "" {
		return StateConfused
	}

	if _, ok := c.outOfScopeTopic(text); ok {
		return StateOutOfScope
	}
	if containsAny(text, confusionSignals) {
		return StateConfused
	}
	if containsAny(text, validationSignals) {
		return StateValidationSeeking
	}
	if c.isSelfReflection(text) {
		return StateSelfReflection
	}
	if containsAny(text, curiositySignals) {
		return StateCareerCuriosity
	}
	if containsAny(text, comparisonSignals) {
		return StateComparison
	}
	if containsAny(text, informationSignals) {
		return StateInformationSeeking
	}
	if continuesComparison(text, history) {
		return StateComparison
	}
	if c.domainRelevant(text, profile) {
		return StateInformationSeeking
	}
	return StateOutOfScope
}

// OutOfScopeTopic reports which boundary topic a message touches, if any.
// Exposed so callers can label metrics without re-deriving the match.
func (c *RuleClassifier) OutOfScopeTopic(message string) (string, bool) {
	return c.outOfScopeTopic(normalize(message))
}

func (c *RuleClassifier) outOfScopeTopic(text string) (string, bool) {
	for topic, res := range c.outOfScope {
		for _, re := range res {
			if re.MatchString(text) {
				return topic, true
			}
		}
	}
	return "", false
}

func (c *RuleClassifier) isSelfReflection(text string) bool {
	if !containsAny(text, reflectionSignals) {
		return false
	}
	// A stated preference wrapped in a question is usually a request for
	// facts, not a disclosure, unless the preference phrasing is explicit.
	if isQuestionLike(text) {
		return containsAny(text, strongReflectionSignals)
	}
	return true
}

func (c *RuleClassifier) domainRelevant(text string, profile memory.Snapshot) bool {
	words := strings.Fields(text)
	for _, w := range words {
		w = strings.Trim(w, ".,!?\"'")
		for _, d := range domainSignals {
			if w == d {
				return true
			}
		}
	}
	// A bare mention of something the student already discussed keeps the
	// turn in domain ("what about medicine?" after a medicine chat).
	for _, fact := range profile {
		v := normalize(fact.Value)
		if v != "" && strings.Contains(text, v) {
			return true
		}
	}
	return false
}

// continuesComparison keeps a short follow-up inside an unresolved
// comparison from the previous turn.
func continuesComparison(text string, history []Turn) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	if last.State != StateComparison {
		return false
	}
	if len(strings.Fields(text)) > 6 {
		return false
	}
	return containsAny(text, comparisonFollowUpSignals)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(text string, signals []string) bool {
	for _, sig := range signals {
		if strings.Contains(text, sig) {
			return true
		}
	}
	return false
}

func isQuestionLike(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	for _, q := range []string{"what", "how", "which", "where", "when", "why"} {
		if strings.Contains(text, q) {
			return true
		}
	}
	return false
}
