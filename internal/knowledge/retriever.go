// Package knowledge exposes the semantic-retrieval capability consumed by
// fact-needing states. The decision core only consumes retrieval; building
// and refreshing the underlying index is someone else's job.
package knowledge

import "context"

// Passage is one ranked factual snippet.
type Passage struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Source  string  `json:"source,omitempty"`
}

// Retriever returns the k most relevant passages for a query, best first.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Passage, error)
	Close() error
}
