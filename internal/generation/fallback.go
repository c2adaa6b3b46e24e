package generation

import (
	"context"
	"errors"
	"fmt"
)

// FallbackGateway attempts a primary gateway first and falls back on error.
// Context cancellation is never masked by the fallback: a cancelled turn
// stays cancelled.
type FallbackGateway struct {
	primary  Gateway
	fallback Gateway
}

func NewFallbackGateway(primary, fallback Gateway) *FallbackGateway {
	return &FallbackGateway{primary: primary, fallback: fallback}
}

func (g *FallbackGateway) Complete(ctx context.Context, d Directive) (string, error) {
	if g == nil || g.primary == nil {
		if g != nil && g.fallback != nil {
			return g.fallback.Complete(ctx, d)
		}
		return "", errors.New("fallback gateway misconfigured")
	}

	text, err := g.primary.Complete(ctx, d)
	if err == nil {
		return text, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}
	if g.fallback == nil {
		return "", err
	}

	text, fbErr := g.fallback.Complete(ctx, d)
	if fbErr != nil {
		return "", fmt.Errorf("primary gateway error: %w; fallback gateway error: %v", err, fbErr)
	}
	return text, nil
}
