package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/buddy/internal/reliability"
)

// HTTPGateway forwards directives to a generation HTTP endpoint.
type HTTPGateway struct {
	url    string
	client *http.Client
}

func NewHTTPGateway(url string) *HTTPGateway {
	return &HTTPGateway{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type completeRequest struct {
	Directive Directive `json:"directive"`
	Prompt    string    `json:"prompt"`
}

type completeResponse struct {
	Text   string `json:"text"`
	Output string `json:"output"`
	Reply  string `json:"reply"`
}

func (g *HTTPGateway) Complete(ctx context.Context, d Directive) (string, error) {
	payload, err := json.Marshal(completeRequest{Directive: d, Prompt: BuildPrompt(d)})
	if err != nil {
		return "", fmt.Errorf("marshal directive: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		err := fmt.Errorf("generation http status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
		if reliability.IsRetryableHTTPStatus(res.StatusCode) {
			return "", reliability.MarkRetryable(err)
		}
		return "", err
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var obj completeResponse
	if err := json.Unmarshal(body, &obj); err != nil {
		// Plain-text endpoints are acceptable.
		return strings.TrimSpace(string(body)), nil
	}
	for _, text := range []string{obj.Text, obj.Output, obj.Reply} {
		if strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), nil
		}
	}
	return "", nil
}
