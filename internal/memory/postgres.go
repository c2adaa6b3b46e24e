package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists memory facts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memory_facts (
			student_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			value TEXT NOT NULL,
			first_seen TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_seen TIMESTAMPTZ NOT NULL DEFAULT now(),
			ref_count INTEGER NOT NULL DEFAULT 1,
			PRIMARY KEY (student_id, kind, value)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_memory_facts_student_seen ON memory_facts (student_id, last_seen);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// AppendFact upserts on the fact identity: a restated fact only moves its
// recency and reference count, so concurrent appends can never duplicate.
func (s *PostgresStore) AppendFact(ctx context.Context, fact Fact) error {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO memory_facts (student_id, kind, value, first_seen, last_seen, ref_count)
		 VALUES ($1, $2, $3, $4, $5, 1)
		 ON CONFLICT (student_id, kind, value)
		 DO UPDATE SET last_seen = EXCLUDED.last_seen, ref_count = memory_facts.ref_count + 1`,
		fact.StudentID,
		string(fact.Kind),
		strings.ToLower(fact.Value),
		fact.FirstSeen,
		fact.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("append fact: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReadProfile(ctx context.Context, studentID string) (Snapshot, error) {
	return s.query(ctx, studentID, 0)
}

func (s *PostgresStore) ProjectForContext(ctx context.Context, studentID string, maxItems int) (Snapshot, error) {
	if maxItems <= 0 {
		maxItems = 10
	}
	return s.query(ctx, studentID, maxItems)
}

func (s *PostgresStore) query(ctx context.Context, studentID string, limit int) (Snapshot, error) {
	q := `SELECT student_id, kind, value, first_seen, last_seen, ref_count
	      FROM memory_facts WHERE student_id=$1
	      ORDER BY last_seen DESC, ref_count DESC`
	args := []any{studentID}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var facts Snapshot
	for rows.Next() {
		var f Fact
		var kind string
		if err := rows.Scan(&f.StudentID, &kind, &f.Value, &f.FirstSeen, &f.LastSeen, &f.Refs); err != nil {
			return nil, fmt.Errorf("scan fact row: %w", err)
		}
		f.Kind = FactKind(kind)
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fact rows: %w", err)
	}
	return facts, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
