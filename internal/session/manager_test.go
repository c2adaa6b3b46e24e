package session

import (
	"context"
	"testing"
	"time"

	"github.com/ent0n29/buddy/internal/conversation"
)

func TestManagerCreateGetEnd(t *testing.T) {
	m := NewManager(time.Minute, 6)
	s := m.Create("s1")
	if s.ID == "" {
		t.Fatalf("session ID should not be empty")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.StudentID != "s1" || got.Status != StatusActive {
		t.Fatalf("unexpected session state: %+v", got)
	}

	ended, err := m.End(s.ID)
	if err != nil {
		t.Fatalf("End() error = %v", err)
	}
	if ended.Status != StatusEnded {
		t.Fatalf("ended status = %q, want %q", ended.Status, StatusEnded)
	}
}

func TestGetOrCreateForStudentReusesActiveSession(t *testing.T) {
	m := NewManager(time.Minute, 6)
	first := m.GetOrCreateForStudent("s1")
	second := m.GetOrCreateForStudent("s1")
	if first.ID != second.ID {
		t.Fatalf("active session not reused: %q vs %q", first.ID, second.ID)
	}

	if _, err := m.End(first.ID); err != nil {
		t.Fatalf("End() error = %v", err)
	}
	third := m.GetOrCreateForStudent("s1")
	if third.ID == first.ID {
		t.Fatalf("ended session reused")
	}
}

func TestRecordTurnKeepsBoundedWindow(t *testing.T) {
	m := NewManager(time.Minute, 3)
	s := m.Create("s1")

	for i := 0; i < 5; i++ {
		turn := conversation.Turn{
			ID:      string(rune('a' + i)),
			Message: "m",
			State:   conversation.StateInformationSeeking,
		}
		if err := m.RecordTurn(s.ID, turn); err != nil {
			t.Fatalf("RecordTurn() error = %v", err)
		}
	}

	turns := m.RecentTurns(s.ID, 10)
	if len(turns) != 3 {
		t.Fatalf("window holds %d turns, want 3", len(turns))
	}
	if turns[0].ID != "c" || turns[2].ID != "e" {
		t.Fatalf("window kept wrong turns: first=%q last=%q", turns[0].ID, turns[2].ID)
	}

	limited := m.RecentTurns(s.ID, 2)
	if len(limited) != 2 || limited[1].ID != "e" {
		t.Fatalf("limited window wrong: %+v", limited)
	}
}

func TestRecentTurnsUnknownSession(t *testing.T) {
	m := NewManager(time.Minute, 3)
	if turns := m.RecentTurns("missing", 5); turns != nil {
		t.Fatalf("RecentTurns(missing) = %v, want nil", turns)
	}
}

func TestManagerJanitorExpiresInactive(t *testing.T) {
	m := NewManager(30*time.Millisecond, 6)
	s := m.Create("s1")

	expired := make(chan string, 1)
	m.SetExpireHook(func(sess *Session) { expired <- sess.ID })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-expired:
		if id != s.ID {
			t.Fatalf("expired session = %q, want %q", id, s.ID)
		}
	case <-time.After(time.Second):
		t.Fatalf("expire hook never fired")
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusEnded {
		t.Fatalf("Status = %q, want %q", got.Status, StatusEnded)
	}
}
