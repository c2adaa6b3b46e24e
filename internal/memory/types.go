package memory

import (
	"context"
	"time"
)

// FactKind classifies a durable disclosure.
type FactKind string

const (
	KindInterest            FactKind = "interest"
	KindDislike             FactKind = "dislike"
	KindCareerDiscussed     FactKind = "career-discussed"
	KindDisclosedPreference FactKind = "disclosed-preference"
)

// Fact is an append-only record of something a student disclosed or a
// career that was discussed. Identity is (student, kind, value); restating
// a fact refreshes recency, it never creates a second row. Facts are only
// surfaced to the student as natural-language callbacks chosen by
// generation, never as a list, score, or label.
type Fact struct {
	StudentID string    `json:"student_id"`
	Kind      FactKind  `json:"kind"`
	Value     string    `json:"value"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Refs      int       `json:"refs"`
}

// Snapshot is a read-only view of a student's facts.
type Snapshot []Fact

// Store persists student memory facts. It has no knowledge of conversation
// state and performs no classification, validation, or generation.
type Store interface {
	// ReadProfile returns every fact for the student, most recent first.
	ReadProfile(ctx context.Context, studentID string) (Snapshot, error)
	// AppendFact is idempotent on (kind, value): a repeat updates LastSeen
	// and the reference count only.
	AppendFact(ctx context.Context, fact Fact) error
	// ProjectForContext returns a small relevance-ordered subset (most
	// recent, then most referenced) bounded to maxItems, suitable for a
	// generation prompt.
	ProjectForContext(ctx context.Context, studentID string, maxItems int) (Snapshot, error)
	Close() error
}
