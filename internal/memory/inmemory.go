package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type factKey struct {
	kind  FactKind
	value string
}

// InMemoryStore is a simple in-process fact store for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	facts map[string]map[factKey]*Fact
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{facts: make(map[string]map[factKey]*Fact)}
}

func (s *InMemoryStore) AppendFact(_ context.Context, fact Fact) error {
	fact.Value = strings.TrimSpace(fact.Value)
	if fact.StudentID == "" || fact.Value == "" {
		return nil
	}
	now := time.Now().UTC()
	if fact.FirstSeen.IsZero() {
		fact.FirstSeen = now
	}
	if fact.LastSeen.IsZero() {
		fact.LastSeen = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byKey := s.facts[fact.StudentID]
	if byKey == nil {
		byKey = make(map[factKey]*Fact)
		s.facts[fact.StudentID] = byKey
	}
	key := factKey{kind: fact.Kind, value: strings.ToLower(fact.Value)}
	if existing, ok := byKey[key]; ok {
		existing.LastSeen = fact.LastSeen
		existing.Refs++
		return nil
	}
	fact.Refs = 1
	byKey[key] = &fact
	return nil
}

func (s *InMemoryStore) ReadProfile(_ context.Context, studentID string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byKey := s.facts[studentID]
	if len(byKey) == 0 {
		return nil, nil
	}
	out := make(Snapshot, 0, len(byKey))
	for _, f := range byKey {
		out = append(out, *f)
	}
	sortByRelevance(out)
	return out, nil
}

func (s *InMemoryStore) ProjectForContext(ctx context.Context, studentID string, maxItems int) (Snapshot, error) {
	all, err := s.ReadProfile(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if maxItems <= 0 || maxItems > len(all) {
		maxItems = len(all)
	}
	return all[:maxItems], nil
}

func (s *InMemoryStore) Close() error { return nil }

// sortByRelevance orders most recent first, breaking ties on how often the
// fact has been restated.
func sortByRelevance(facts Snapshot) {
	sort.SliceStable(facts, func(i, j int) bool {
		if !facts[i].LastSeen.Equal(facts[j].LastSeen) {
			return facts[i].LastSeen.After(facts[j].LastSeen)
		}
		return facts[i].Refs > facts[j].Refs
	})
}
