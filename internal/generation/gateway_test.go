package generation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ent0n29/buddy/internal/conversation"
)

func TestNewGatewayModes(t *testing.T) {
	if _, err := NewGateway(Config{Mode: "mock"}); err != nil {
		t.Fatalf("NewGateway(mock) error = %v", err)
	}
	if _, err := NewGateway(Config{Mode: "http"}); err == nil {
		t.Fatalf("NewGateway(http) without URL should fail")
	}
	if _, err := NewGateway(Config{Mode: "banana"}); err == nil {
		t.Fatalf("NewGateway(banana) should fail")
	}

	g, err := NewGateway(Config{Mode: "auto"})
	if err != nil {
		t.Fatalf("NewGateway(auto) error = %v", err)
	}
	if _, ok := g.(*MockGateway); !ok {
		t.Fatalf("auto without URL should resolve to mock, got %T", g)
	}

	g, err = NewGateway(Config{Mode: "auto", HTTPURL: "http://localhost:9999/complete"})
	if err != nil {
		t.Fatalf("NewGateway(auto with url) error = %v", err)
	}
	if _, ok := g.(*FallbackGateway); !ok {
		t.Fatalf("auto with URL should resolve to fallback gateway, got %T", g)
	}
}

func TestMockGatewayRespectsQuestionBudget(t *testing.T) {
	g := NewMockGateway()
	for _, state := range conversation.PriorityOrder {
		if state == conversation.StateOutOfScope {
			continue
		}
		text, err := g.Complete(context.Background(), Directive{State: state, Message: "hi", MaxQuestions: 1})
		if err != nil {
			t.Fatalf("Complete(%s) error = %v", state, err)
		}
		if n := strings.Count(text, "?"); n > 1 {
			t.Fatalf("%s mock reply asks %d questions: %q", state, n, text)
		}
	}
}

func TestMockGatewayEchoesMemory(t *testing.T) {
	g := NewMockGateway()
	text, err := g.Complete(context.Background(), Directive{
		State:  conversation.StateSelfReflection,
		Memory: []string{"interest: debating"},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !strings.Contains(text, "interest: debating") {
		t.Fatalf("reply does not reference memory: %q", text)
	}
}

type stubGateway struct {
	text string
	err  error
}

func (s *stubGateway) Complete(context.Context, Directive) (string, error) {
	return s.text, s.err
}

func TestFallbackGatewayUsesFallbackOnError(t *testing.T) {
	g := NewFallbackGateway(
		&stubGateway{err: errors.New("boom")},
		&stubGateway{text: "fallback text"},
	)
	text, err := g.Complete(context.Background(), Directive{})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if text != "fallback text" {
		t.Fatalf("text = %q, want fallback text", text)
	}
}

func TestFallbackGatewayNeverMasksCancellation(t *testing.T) {
	g := NewFallbackGateway(
		&stubGateway{err: context.Canceled},
		&stubGateway{text: "fallback text"},
	)
	if _, err := g.Complete(context.Background(), Directive{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Complete() error = %v, want context.Canceled", err)
	}
}

func TestBuildPromptContainsAllSections(t *testing.T) {
	d := Directive{
		State:        conversation.StateComparison,
		Goal:         "Explain trade-offs",
		Allowed:      []string{"Stay neutral"},
		Forbidden:    []string{"Rank options"},
		MaxQuestions: 1,
		Message:      "science or commerce?",
		Memory:       []string{"interest: coding"},
		Passages:     []string{"Commerce focuses on business and finance."},
		History:      []string{"Student: hi", "Buddy: hello"},
		Corrections:  []string{"Ask at most 1 question(s)."},
	}
	prompt := BuildPrompt(d)

	for _, want := range []string{
		"CONVERSATION STATE: COMPARISON",
		"Explain trade-offs",
		"Stay neutral",
		"Rank options",
		"at most 1 question",
		"interest: coding",
		"Commerce focuses on business and finance.",
		"Student: hi",
		"FIX THESE PROBLEMS",
		"science or commerce?",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
