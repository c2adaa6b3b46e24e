// Package policy holds deterministic input hygiene applied before a
// message is classified, logged, or mined for memory facts.
package policy

import (
	"regexp"
	"strings"
)

const maxMessageLength = 2000

var (
	scriptPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)

	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
)

// SanitizeInput collapses whitespace, strips markup, and caps length.
// An empty result means the message carried nothing worth processing.
func SanitizeInput(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > maxMessageLength {
		text = text[:maxMessageLength] + "..."
	}
	text = scriptPattern.ReplaceAllString(text, "")
	text = tagPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// RedactPII masks common high-risk PII patterns. Student messages pass
// through here before they are written to logs or mined into facts.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	// Run card redaction before phone to avoid card numbers being classified as phone.
	next = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}
