package memory

import (
	"regexp"
	"strings"
	"time"
)

// Extractor mines a student's message for durable disclosures. It only
// fires on explicit first-person statements; questions and generic chatter
// yield nothing.
type Extractor struct {
	interests   []*regexp.Regexp
	dislikes    []*regexp.Regexp
	preferences []*regexp.Regexp
	careerRe    *regexp.Regexp
}

var interestPatterns = []string{
	`i (?:really )?(?:like|love|enjoy) (?:to )?(.+?)(?:\.|,|!|$)`,
	`i'?m (?:really )?interested in (.+?)(?:\.|,|!|$)`,
	`i find (.+?) (?:interesting|fascinating|exciting)`,
	`i'?ve always (?:liked|loved|enjoyed) (.+?)(?:\.|,|!|$)`,
}

var dislikePatterns = []string{
	`i (?:really )?(?:hate|dislike|don'?t like) (.+?)(?:\.|,|!|$)`,
	`i'?m not (?:really )?interested in (.+?)(?:\.|,|!|$)`,
	`i (?:can'?t stand|avoid) (.+?)(?:\.|,|!|$)`,
	`(.+?) (?:is|seems) (?:boring|dull|not for me)`,
}

// Strengths and struggles both land in the disclosed-preference kind.
var preferencePatterns = []string{
	`i'?m (?:really )?good at (.+?)(?:\.|,|!|$)`,
	`i'?m (?:quite )?skilled (?:at|in) (.+?)(?:\.|,|!|$)`,
	`i do well (?:at|in|with) (.+?)(?:\.|,|!|$)`,
	`i'?m (?:really )?(?:bad|weak) at (.+?)(?:\.|,|!|$)`,
	`i struggle with (.+?)(?:\.|,|!|$)`,
	`i prefer (.+?)(?:\.|,|!|$)`,
}

var careerTerms = []string{
	"engineer", "doctor", "lawyer", "teacher", "developer", "designer",
	"architect", "scientist", "writer", "artist", "musician", "accountant",
	"manager", "consultant", "analyst", "programmer", "pilot", "chef",
	"entrepreneur", "psychologist", "journalist", "photographer",
	"engineering", "medicine", "law", "marketing", "finance", "business",
}

var careerPositiveCues = []string{"like", "love", "want", "interested", "curious", "dream", "hope", "become"}
var careerNegativeCues = []string{"hate", "dislike", "don't want", "dont want", "not interested", "boring"}

var leadingFillers = map[string]bool{
	"to": true, "the": true, "a": true, "an": true,
	"doing": true, "being": true, "that": true, "this": true,
}

var trailingFillers = []string{"a lot", "so much", "very much", "really", "sometimes"}

func NewExtractor() *Extractor {
	compile := func(patterns []string) []*regexp.Regexp {
		out := make([]*regexp.Regexp, 0, len(patterns))
		for _, p := range patterns {
			out = append(out, regexp.MustCompile(`(?i)`+p))
		}
		return out
	}
	return &Extractor{
		interests:   compile(interestPatterns),
		dislikes:    compile(dislikePatterns),
		preferences: compile(preferencePatterns),
		careerRe:    regexp.MustCompile(`\b(` + strings.Join(careerTerms, "|") + `)\b`),
	}
}

// Extract returns the facts disclosed in message, deduplicated by
// (kind, value). Negative-sentiment career mentions are skipped: "I hate
// medicine" is a dislike, not a discussed career.
func (e *Extractor) Extract(studentID, message string) []Fact {
	now := time.Now().UTC()
	seen := make(map[factKey]bool)
	var facts []Fact

	add := func(kind FactKind, value string) {
		value = cleanValue(value)
		if len(value) < 3 {
			return
		}
		key := factKey{kind: kind, value: value}
		if seen[key] {
			return
		}
		seen[key] = true
		facts = append(facts, Fact{
			StudentID: studentID,
			Kind:      kind,
			Value:     value,
			FirstSeen: now,
			LastSeen:  now,
		})
	}

	for _, re := range e.interests {
		for _, m := range re.FindAllStringSubmatch(message, -1) {
			add(KindInterest, m[1])
		}
	}
	for _, re := range e.dislikes {
		for _, m := range re.FindAllStringSubmatch(message, -1) {
			add(KindDislike, m[1])
		}
	}
	for _, re := range e.preferences {
		for _, m := range re.FindAllStringSubmatch(message, -1) {
			add(KindDisclosedPreference, m[1])
		}
	}

	lower := strings.ToLower(message)
	for _, m := range e.careerRe.FindAllString(lower, -1) {
		if careerSentiment(lower, m) == "negative" {
			continue
		}
		add(KindCareerDiscussed, m)
	}

	return facts
}

func careerSentiment(text, career string) string {
	idx := strings.Index(text, career)
	if idx < 0 {
		return "neutral"
	}
	start := idx - 50
	if start < 0 {
		start = 0
	}
	end := idx + len(career) + 50
	if end > len(text) {
		end = len(text)
	}
	window := text[start:end]

	for _, cue := range careerNegativeCues {
		if strings.Contains(window, cue) {
			return "negative"
		}
	}
	for _, cue := range careerPositiveCues {
		if strings.Contains(window, cue) {
			return "positive"
		}
	}
	return "neutral"
}

func cleanValue(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	words := strings.Fields(v)
	for len(words) > 0 && leadingFillers[words[0]] {
		words = words[1:]
	}
	v = strings.Join(words, " ")
	for _, filler := range trailingFillers {
		v = strings.TrimSuffix(v, " "+filler)
	}
	return strings.TrimSpace(v)
}
