package policy

import (
	"strings"
	"testing"
)

func TestSanitizeInputCollapsesAndCaps(t *testing.T) {
	got := SanitizeInput("  hello \n\t world  ")
	if got != "hello world" {
		t.Fatalf("SanitizeInput() = %q, want %q", got, "hello world")
	}

	long := strings.Repeat("a", 3000)
	got = SanitizeInput(long)
	if len(got) != 2003 || !strings.HasSuffix(got, "...") {
		t.Fatalf("long input not capped: len=%d", len(got))
	}
}

func TestSanitizeInputStripsMarkup(t *testing.T) {
	got := SanitizeInput(`hi <script>alert("x")</script> <b>there</b>`)
	if strings.Contains(got, "<") || strings.Contains(got, "alert") {
		t.Fatalf("markup survived: %q", got)
	}
}

func TestRedactPII(t *testing.T) {
	in := "email me at kid@example.com or call 98765 43210"
	out, changed := RedactPII(in)
	if !changed {
		t.Fatalf("RedactPII() reported no change")
	}
	if strings.Contains(out, "kid@example.com") || strings.Contains(out, "98765 43210") {
		t.Fatalf("PII survived: %q", out)
	}
	if !strings.Contains(out, "[REDACTED_EMAIL]") || !strings.Contains(out, "[REDACTED_PHONE]") {
		t.Fatalf("markers missing: %q", out)
	}

	out, changed = RedactPII("i like physics")
	if changed || out != "i like physics" {
		t.Fatalf("clean input was altered: %q", out)
	}
}
