// Package generation wraps the external text-generation service. The
// gateway is treated as an untrusted capability: nothing here enforces
// safety, that is the guardrail validator's job.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ent0n29/buddy/internal/conversation"
)

// Directive is the assembled instruction payload handed to generation:
// state tag, policy goal and constraints, bounded memory projection,
// bounded retrieved passages, and a bounded recent-turn history window.
// Every field is size-bounded by the orchestrator before the call.
type Directive struct {
	StudentID    string             `json:"student_id"`
	TurnID       string             `json:"turn_id"`
	State        conversation.State `json:"state"`
	Goal         string             `json:"goal"`
	Allowed      []string           `json:"allowed"`
	Forbidden    []string           `json:"forbidden"`
	MaxQuestions int                `json:"max_questions"`
	Message      string             `json:"message"`
	Memory       []string           `json:"memory,omitempty"`
	Passages     []string           `json:"passages,omitempty"`
	History      []string           `json:"history,omitempty"`
	// Corrections carries the failed guardrail checks from the previous
	// attempt so a regeneration can fix them explicitly.
	Corrections []string `json:"corrections,omitempty"`
}

// Gateway produces a draft reply for a directive. Implementations must
// honor ctx cancellation; a timed-out call is a service fault, never left
// pending.
type Gateway interface {
	Complete(ctx context.Context, d Directive) (string, error)
}

// Config controls gateway construction.
type Config struct {
	Mode    string
	HTTPURL string
}

func NewGateway(cfg Config) (Gateway, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewFallbackGateway(NewHTTPGateway(cfg.HTTPURL), NewMockGateway()), nil
		}
		return NewMockGateway(), nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("generation HTTP url is required for http mode")
		}
		return NewHTTPGateway(cfg.HTTPURL), nil
	case "mock":
		return NewMockGateway(), nil
	default:
		return nil, fmt.Errorf("unsupported generation gateway mode %q", cfg.Mode)
	}
}

// BuildPrompt renders the directive into a single prompt string. No exact
// format is imposed by the decision core beyond "everything present and
// bounded"; this layout mirrors what the upstream service expects.
func BuildPrompt(d Directive) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "CONVERSATION STATE: %s\nGOAL: %s\n", strings.ToUpper(d.State.String()), d.Goal)

	sb.WriteString("\nYOU MUST:\n")
	for _, move := range d.Allowed {
		fmt.Fprintf(&sb, "- %s\n", move)
	}
	sb.WriteString("\nYOU MUST NOT:\n")
	for _, move := range d.Forbidden {
		fmt.Fprintf(&sb, "- %s\n", move)
	}
	fmt.Fprintf(&sb, "\nQUESTION LIMIT: ask at most %d question(s).\n", d.MaxQuestions)

	if len(d.Memory) > 0 {
		sb.WriteString("\nWHAT YOU KNOW ABOUT THE STUDENT (reference naturally, never as a list):\n")
		for _, m := range d.Memory {
			fmt.Fprintf(&sb, "- %s\n", m)
		}
	}
	if len(d.Passages) > 0 {
		sb.WriteString("\nCAREER INFORMATION:\n")
		for _, p := range d.Passages {
			fmt.Fprintf(&sb, "%s\n\n", p)
		}
	}
	if len(d.History) > 0 {
		sb.WriteString("\nRECENT CONVERSATION:\n")
		for _, h := range d.History {
			fmt.Fprintf(&sb, "%s\n", h)
		}
	}
	if len(d.Corrections) > 0 {
		sb.WriteString("\nYOUR PREVIOUS DRAFT WAS REJECTED. FIX THESE PROBLEMS:\n")
		for _, c := range d.Corrections {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}

	fmt.Fprintf(&sb, "\nStudent's message: %s\n", d.Message)
	return sb.String()
}
