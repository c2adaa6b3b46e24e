package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/ent0n29/buddy/internal/conversation"
)

// MockGateway provides deterministic local replies when no generation
// service is configured. Replies are shaped to each state's policy so the
// local loop exercises the same release path as production.
type MockGateway struct{}

func NewMockGateway() *MockGateway { return &MockGateway{} }

func (g *MockGateway) Complete(ctx context.Context, d Directive) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return buildMockReply(d), nil
}

func buildMockReply(d Directive) string {
	var reply string
	switch d.State {
	case conversation.StateConfused:
		reply = "It's completely normal to feel unsure about this stuff. Most people your age feel the same way. What's one thing you enjoy doing, even if it seems small?"
	case conversation.StateValidationSeeking:
		reply = "That's a thoughtful question. Careers aren't really about being good enough, they're about finding what fits you. What draws you to thinking about this one?"
	case conversation.StateSelfReflection:
		reply = "That's really interesting to hear. What is it about that you enjoy the most?"
	case conversation.StateCareerCuriosity:
		reply = "A typical day in that kind of work is more hands-on than people expect. Which part of it sounds interesting to you?"
	case conversation.StateComparison:
		reply = "Both paths involve quite different kinds of day-to-day work, and each suits different people. Which of those aspects matters more to you?"
	default:
		reply = "Here are the basics, kept short. Want me to go deeper on any part of this?"
	}

	if len(d.Memory) > 0 {
		last := strings.TrimSpace(d.Memory[len(d.Memory)-1])
		if last != "" {
			reply = fmt.Sprintf("Since you mentioned %s earlier, this might connect. %s", last, reply)
		}
	}
	return reply
}
