package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/buddy/internal/conversation"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var ErrNotFound = errors.New("session not found")

// Session tracks one student's active chat plus a bounded window of
// recent turns. The window feeds classification continuity and the
// generation directive; it is not a transcript store.
type Session struct {
	ID             string    `json:"session_id"`
	StudentID      string    `json:"student_id"`
	Status         Status    `json:"status"`
	LastState      string    `json:"last_state,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	LastActivityAt time.Time `json:"last_activity_at"`

	turns []conversation.Turn
}

// Manager owns session lifecycle: creation, lookup by student, turn
// history windows, and inactivity expiry.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	sessionByStudent  map[string]string
	historyWindow     int
	inactivityTimeout time.Duration
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration, historyWindow int) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	if historyWindow <= 0 {
		historyWindow = 6
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		sessionByStudent:  make(map[string]string),
		historyWindow:     historyWindow,
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

func (m *Manager) Create(studentID string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	if studentID != "" {
		m.sessionByStudent[studentID] = s.ID
	}
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// GetOrCreateForStudent returns the student's active session, creating one
// when none exists. Message handling never fails on a missing session.
func (m *Manager) GetOrCreateForStudent(studentID string) *Session {
	m.mu.RLock()
	id, ok := m.sessionByStudent[studentID]
	if ok {
		if s, found := m.sessions[id]; found && s.Status == StatusActive {
			out := clone(s)
			m.mu.RUnlock()
			return out
		}
	}
	m.mu.RUnlock()
	return m.Create(studentID)
}

func (m *Manager) Touch(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// RecordTurn appends a released turn to the session's bounded window and
// remembers the state for the read-only projection endpoint.
func (m *Manager) RecordTurn(sessionID string, turn conversation.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	s.turns = append(s.turns, turn)
	if len(s.turns) > m.historyWindow {
		s.turns = s.turns[len(s.turns)-m.historyWindow:]
	}
	s.LastState = turn.State.String()
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// RecentTurns returns up to limit most recent turns, oldest first.
func (m *Manager) RecentTurns(sessionID string, limit int) []conversation.Turn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok || len(s.turns) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(s.turns) {
		limit = len(s.turns)
	}
	out := make([]conversation.Turn, limit)
	copy(out, s.turns[len(s.turns)-limit:])
	return out
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.LastActivityAt = time.Now().UTC()
	if s.StudentID != "" {
		delete(m.sessionByStudent, s.StudentID)
	}
	return clone(s), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for _, s := range m.sessions {
		if s.Status != StatusActive {
			continue
		}
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.LastActivityAt = now
		expired = append(expired, clone(s))
		if s.StudentID != "" {
			delete(m.sessionByStudent, s.StudentID)
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	c.turns = nil
	return &c
}
