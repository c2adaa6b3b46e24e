// Package ratelimit throttles per-student message volume so one noisy
// client cannot monopolize the generation gateway.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// StudentLimiter keeps one token bucket per student. Buckets for idle
// students are reaped so the map does not grow without bound.
type StudentLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewStudentLimiter allows maxMessages per window for each student.
func NewStudentLimiter(maxMessages int, window time.Duration) *StudentLimiter {
	if maxMessages <= 0 {
		maxMessages = 30
	}
	if window <= 0 {
		window = time.Minute
	}
	return &StudentLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(float64(maxMessages) / window.Seconds()),
		burst:   maxMessages,
		idleTTL: 10 * window,
	}
}

// Allow reports whether the student may send another message now.
func (l *StudentLimiter) Allow(studentID string) bool {
	l.mu.Lock()
	b, ok := l.buckets[studentID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[studentID] = b
	}
	b.lastSeen = time.Now()
	l.mu.Unlock()
	return b.limiter.Allow()
}

// StartJanitor reaps buckets idle longer than the TTL.
func (l *StudentLimiter) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.reap()
			}
		}
	}()
}

func (l *StudentLimiter) reap() {
	cutoff := time.Now().Add(-l.idleTTL)
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, id)
		}
	}
}
