package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ent0n29/buddy/internal/config"
	"github.com/ent0n29/buddy/internal/conversation"
	"github.com/ent0n29/buddy/internal/memory"
	"github.com/ent0n29/buddy/internal/observability"
	"github.com/ent0n29/buddy/internal/orchestrator"
	"github.com/ent0n29/buddy/internal/ratelimit"
	"github.com/ent0n29/buddy/internal/session"
)

type stubOrchestrator struct {
	result orchestrator.TurnResult
	err    error
	calls  int
}

func (s *stubOrchestrator) HandleMessage(_ context.Context, studentID, message string) (orchestrator.TurnResult, error) {
	s.calls++
	return s.result, s.err
}

func newTestServer(t *testing.T, orch Orchestrator, limiter *ratelimit.StudentLimiter) *Server {
	t.Helper()
	cfg := config.Config{SessionInactivityTimeout: time.Minute}
	sessions := session.NewManager(time.Minute, 6)
	metrics := observability.NewMetrics(fmt.Sprintf("test_httpapi_%d", time.Now().UnixNano()))
	return New(cfg, sessions, orch, memory.NewInMemoryStore(), limiter, metrics)
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, &stubOrchestrator{}, nil)
	router := srv.Router()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestCreateAndEndSession(t *testing.T) {
	srv := newTestServer(t, &stubOrchestrator{}, nil)
	router := srv.Router()

	body := bytes.NewBufferString(`{"student_id":"s1"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/session", body))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created session.CreateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.StudentID != "s1" || created.SessionID == "" {
		t.Fatalf("unexpected create response: %+v", created)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/session/"+created.SessionID+"/end", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("end session = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/session/nope/end", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("end unknown session = %d, want 404", rec.Code)
	}
}

func TestChatMessage(t *testing.T) {
	orch := &stubOrchestrator{result: orchestrator.TurnResult{
		TurnID:   "t1",
		State:    conversation.StateInformationSeeking,
		Text:     "Here are the basics.",
		Terminal: orchestrator.TerminalReleased,
		Attempts: 1,
	}}
	srv := newTestServer(t, orch, nil)
	router := srv.Router()

	body := bytes.NewBufferString(`{"student_id":"s1","message":"What exams do I need?"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/message", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("chat message = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var res orchestrator.TurnResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode turn result: %v", err)
	}
	if res.TurnID != "t1" || res.Terminal != orchestrator.TerminalReleased {
		t.Fatalf("unexpected result: %+v", res)
	}
	if orch.calls != 1 {
		t.Fatalf("orchestrator called %d times, want 1", orch.calls)
	}
}

func TestChatMessageValidation(t *testing.T) {
	orch := &stubOrchestrator{}
	srv := newTestServer(t, orch, nil)
	router := srv.Router()

	for _, body := range []string{`{}`, `{"student_id":"s1"}`, `{"message":"hi"}`} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/message", bytes.NewBufferString(body)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s = %d, want 400", body, rec.Code)
		}
	}
	if orch.calls != 0 {
		t.Fatalf("invalid requests reached the orchestrator")
	}
}

func TestChatMessageRateLimited(t *testing.T) {
	orch := &stubOrchestrator{result: orchestrator.TurnResult{Terminal: orchestrator.TerminalReleased}}
	limiter := ratelimit.NewStudentLimiter(1, time.Minute)
	srv := newTestServer(t, orch, limiter)
	router := srv.Router()

	send := func() int {
		body := bytes.NewBufferString(`{"student_id":"s1","message":"hi there"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/message", body))
		return rec.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first message = %d, want 200", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("second message = %d, want 429", code)
	}
}

func TestStudentMemoryEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubOrchestrator{}, nil)
	if err := srv.store.AppendFact(context.Background(), memory.Fact{
		StudentID: "s1", Kind: memory.KindInterest, Value: "physics",
	}); err != nil {
		t.Fatalf("AppendFact() error = %v", err)
	}
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/students/s1/memory", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("memory endpoint = %d, want 200", rec.Code)
	}

	var out struct {
		StudentID string        `json:"student_id"`
		Facts     []memory.Fact `json:"facts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode memory response: %v", err)
	}
	if len(out.Facts) != 1 || out.Facts[0].Value != "physics" {
		t.Fatalf("unexpected memory response: %+v", out)
	}
}

func TestPerfLatencyEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubOrchestrator{}, nil)
	router := srv.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/perf/latency", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("perf endpoint = %d, want 200", rec.Code)
	}
	var snap observability.TurnStageSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode perf snapshot: %v", err)
	}
}
