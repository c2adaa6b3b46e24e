package knowledge

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// StaticRetriever is an in-process retriever over a fixed passage set,
// ranked by token overlap. Used for local/dev runs and tests.
type StaticRetriever struct {
	mu       sync.RWMutex
	passages []Passage
}

func NewStaticRetriever(passages ...Passage) *StaticRetriever {
	return &StaticRetriever{passages: passages}
}

func (r *StaticRetriever) Add(content, source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passages = append(r.passages, Passage{Content: content, Source: source})
}

func (r *StaticRetriever) Search(_ context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = 4
	}
	queryTokens := tokenize(query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	scored := make([]Passage, 0, len(r.passages))
	for _, p := range r.passages {
		score := overlap(queryTokens, tokenize(p.Content))
		if score == 0 {
			continue
		}
		p.Score = score
		scored = append(scored, p)
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (r *StaticRetriever) Close() error { return nil }

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ".,!?\"'()")
		if len(w) > 2 {
			tokens[w] = true
		}
	}
	return tokens
}

func overlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if b[t] {
			shared++
		}
	}
	return float64(shared) / float64(len(a))
}
