// Package guardrail is the deterministic gate between the untrusted text
// generator and the student. Validate is a pure function of
// (text, state, policy): same inputs, same verdict, no I/O.
package guardrail

import (
	"regexp"
	"strings"

	"github.com/ent0n29/buddy/internal/conversation"
)

// CheckID identifies one item of the fixed checklist.
type CheckID string

const (
	CheckTopicConfinement     CheckID = "topic_confinement"
	CheckDirectRecommendation CheckID = "direct_recommendation"
	CheckScoringLabel         CheckID = "scoring_label"
	CheckQuestionBudget       CheckID = "question_budget"
	CheckToneLength           CheckID = "tone_length"
)

// Result is pass/fail plus the checks that failed. Produced fresh per
// attempt; never cached across regenerations.
type Result struct {
	Passed bool
	Failed []CheckID
}

// CanonicalOutOfScope is the locked boundary reply. It must be released
// verbatim for any out-of-scope turn; no paraphrase is acceptable.
const CanonicalOutOfScope = "I'm sorry — I don't have the right context to answer this. I can help with careers, education, and future planning, but for this it would be better to speak with a trusted adult like a teacher or parent. If you'd like, we can talk about your studies, career options, or future plans."

var recommendationPhrases = []string{
	"you should become",
	"you should be a",
	"you would be a great",
	"you would make a great",
	"you are suited for",
	"you're suited for",
	"you are perfect for",
	"you're perfect for",
	"i recommend",
	"i suggest you become",
	"you should pursue",
	"you should definitely",
	"you must become",
}

var judgmentalPhrases = []string{
	"you're not smart enough",
	"you're not good enough",
	"that's a bad choice",
	"that's a wrong choice",
	"you shouldn't",
	"that's unrealistic",
	"you can't become",
}

var rankingPhrases = []string{
	"is better than",
	"is the better option",
	"is the best option",
	"is worse than",
	"the superior choice",
}

var offTopicTerms = []string{
	"boyfriend", "girlfriend", "dating", "breakup",
	"politics", "election", "religion",
	"depression", "suicide", "self-harm", "therapy",
}

var (
	scorePattern = regexp.MustCompile(`(?i)\b\d+\s*(?:/|out of)\s*\d+\b|\bscore(?:d|s)? (?:of |is )?\d|\brank(?:ed|ing)? #?\d|\b\d+%\s*(?:match|fit)\b`)
	labelPattern = regexp.MustCompile(`(?i)\byou(?:'re| are) (?:an? )?(?:average|below average|weak|gifted|slow|top|bottom) (?:student|learner|performer)\b`)
	emojiPattern = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2700}-\x{27B0}\x{2600}-\x{26FF}]`)
)

const (
	maxParagraphs = 5
	maxWords      = 260
	maxEmojis     = 1
	maxBullets    = 6
)

// Validator runs the fixed checklist against a drafted reply.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

// Validate runs every check and reports all failures, not just the first,
// so a regeneration attempt can correct them together.
func (v *Validator) Validate(text string, state conversation.State, policy conversation.ResponsePolicy) Result {
	var failed []CheckID

	if !topicConfined(text, state) {
		failed = append(failed, CheckTopicConfinement)
	}
	if containsAnyPhrase(text, recommendationPhrases) || containsAnyPhrase(text, judgmentalPhrases) ||
		(state == conversation.StateComparison && containsAnyPhrase(text, rankingPhrases)) {
		failed = append(failed, CheckDirectRecommendation)
	}
	if scorePattern.MatchString(text) || labelPattern.MatchString(text) {
		failed = append(failed, CheckScoringLabel)
	}
	if countQuestions(text) > policy.MaxQuestions {
		failed = append(failed, CheckQuestionBudget)
	}
	if !toneAndLengthSane(text) {
		failed = append(failed, CheckToneLength)
	}

	return Result{Passed: len(failed) == 0, Failed: failed}
}

// topicConfined accepts the canonical boundary text as-is and otherwise
// rejects drafts that drift into boundary topics.
func topicConfined(text string, state conversation.State) bool {
	if strings.TrimSpace(text) == CanonicalOutOfScope {
		return true
	}
	if state == conversation.StateOutOfScope {
		// Anything except the canonical string is a violation here.
		return false
	}
	return !containsAnyPhrase(text, offTopicTerms)
}

// countQuestions counts direct questions posed to the student. Question
// marks are the primary indicator, as in the reply contract.
func countQuestions(text string) int {
	return strings.Count(text, "?")
}

func toneAndLengthSane(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if len(strings.Fields(trimmed)) > maxWords {
		return false
	}
	if countParagraphs(trimmed) > maxParagraphs {
		return false
	}
	if len(emojiPattern.FindAllString(trimmed, -1)) > maxEmojis {
		return false
	}
	// A wall of bullets is an information dump regardless of word count.
	return countBullets(trimmed) <= maxBullets
}

func countParagraphs(text string) int {
	count := 0
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			count++
		}
	}
	return count
}

func countBullets(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "- ") || strings.HasPrefix(t, "* ") || strings.HasPrefix(t, "• ") {
			count++
		}
	}
	return count
}

func containsAnyPhrase(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
