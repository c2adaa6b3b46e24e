// Package orchestrator runs the per-turn decision pipeline: classify the
// message, look up the state policy, gather context, call generation, and
// gate every draft through the guardrail validator before release. Nothing
// reaches the student without passing through here.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ent0n29/buddy/internal/conversation"
	"github.com/ent0n29/buddy/internal/generation"
	"github.com/ent0n29/buddy/internal/guardrail"
	"github.com/ent0n29/buddy/internal/knowledge"
	"github.com/ent0n29/buddy/internal/memory"
	"github.com/ent0n29/buddy/internal/observability"
	"github.com/ent0n29/buddy/internal/policy"
	"github.com/ent0n29/buddy/internal/reliability"
	"github.com/ent0n29/buddy/internal/session"
)

// Terminal outcomes of a turn. Every turn ends in exactly one of these.
const (
	TerminalReleased = "released"
	TerminalFallback = "fallback"
)

// Fallback reasons used for metrics labels.
const (
	reasonExternalFault      = "external_fault"
	reasonGuardrailExhausted = "guardrail_exhausted"
)

// TurnResult is what the transport layer sends back to the client.
type TurnResult struct {
	TurnID    string             `json:"turn_id"`
	SessionID string             `json:"session_id"`
	State     conversation.State `json:"state"`
	Text      string             `json:"text"`
	Terminal  string             `json:"terminal"`
	Attempts  int                `json:"attempts"`
}

// Config bounds the pipeline. Zero values fall back to safe defaults.
type Config struct {
	MaxRegenerations int
	ExternalRetries  int
	RetryBaseDelay   time.Duration
	RetryMaxDelay    time.Duration
	GatewayTimeout   time.Duration
	MemoryLimit      int
	HistoryWindow    int
	KnowledgeTopK    int
}

func (c Config) withDefaults() Config {
	if c.MaxRegenerations < 0 {
		c.MaxRegenerations = 0
	}
	if c.ExternalRetries <= 0 {
		c.ExternalRetries = 2
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 200 * time.Millisecond
	}
	if c.RetryMaxDelay <= 0 {
		c.RetryMaxDelay = 2 * time.Second
	}
	if c.GatewayTimeout <= 0 {
		c.GatewayTimeout = 30 * time.Second
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 8
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = 6
	}
	if c.KnowledgeTopK <= 0 {
		c.KnowledgeTopK = 3
	}
	return c
}

// Orchestrator coordinates one turn end to end. Turns for the same student
// are serialized so memory writes never interleave; turns for different
// students run concurrently.
type Orchestrator struct {
	classifier conversation.Classifier
	validator  *guardrail.Validator
	gateway    generation.Gateway
	store      memory.Store
	extractor  *memory.Extractor
	retriever  knowledge.Retriever
	sessions   *session.Manager
	metrics    *observability.Metrics
	logger     *zap.Logger
	cfg        Config

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(
	classifier conversation.Classifier,
	gateway generation.Gateway,
	store memory.Store,
	retriever knowledge.Retriever,
	sessions *session.Manager,
	metrics *observability.Metrics,
	logger *zap.Logger,
	cfg Config,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		classifier: classifier,
		validator:  guardrail.NewValidator(),
		gateway:    gateway,
		store:      store,
		extractor:  memory.NewExtractor(),
		retriever:  retriever,
		sessions:   sessions,
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg.withDefaults(),
	}
}

// HandleMessage runs the full pipeline for one student message and always
// returns something releasable: a validated draft, the canonical boundary
// text, or a canned fallback. It never returns generated-but-unvalidated
// text, and it only errors on caller cancellation.
func (o *Orchestrator) HandleMessage(ctx context.Context, studentID, rawMessage string) (TurnResult, error) {
	turnStart := time.Now()
	defer func() {
		o.metrics.ObserveTurnStage(observability.StageTotal, time.Since(turnStart))
	}()

	unlock := o.lockStudent(studentID)
	defer unlock()

	message := policy.SanitizeInput(rawMessage)
	redacted, _ := policy.RedactPII(message)

	sess := o.sessions.GetOrCreateForStudent(studentID)
	history := o.sessions.RecentTurns(sess.ID, o.cfg.HistoryWindow)

	profile, err := o.store.ReadProfile(ctx, studentID)
	if err != nil {
		// Memory is an enrichment, not a dependency: classify without it.
		o.metrics.ExternalErrors.WithLabelValues("memory").Inc()
		o.logger.Warn("profile read failed", zap.String("student_id", studentID), zap.Error(err))
		profile = nil
	}

	classifyStart := time.Now()
	state := o.classifier.Classify(message, history, profile)
	o.metrics.ObserveTurnStage(observability.StageClassify, time.Since(classifyStart))

	turn := conversation.Turn{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Message:   redacted,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}

	if state == conversation.StateOutOfScope {
		// Locked boundary: release the canonical text verbatim and never
		// call generation for this turn.
		if rc, ok := o.classifier.(*conversation.RuleClassifier); ok {
			if topic, found := rc.OutOfScopeTopic(message); found {
				o.metrics.ObserveTurnIndicator("out_of_scope_" + topic)
			}
		}
		return o.release(ctx, sess.ID, turn, guardrail.CanonicalOutOfScope, TerminalReleased, 0, false), nil
	}

	statePolicy := conversation.PolicyFor(state)
	passages := o.retrievePassages(ctx, statePolicy, message)

	directive := o.buildDirective(ctx, turn, statePolicy, history, passages)

	text, terminal, attempts, err := o.generateValidated(ctx, directive, statePolicy)
	if err != nil {
		return TurnResult{}, err
	}
	return o.release(ctx, sess.ID, turn, text, terminal, attempts, true), nil
}

// generateValidated runs the bounded generate-validate loop: one initial
// attempt plus at most MaxRegenerations retries, each retry carrying the
// failed checks as explicit corrections. Exhaustion or an unrecoverable
// gateway fault yields a canned fallback, never a raw draft.
func (o *Orchestrator) generateValidated(ctx context.Context, d generation.Directive, statePolicy conversation.ResponsePolicy) (string, string, int, error) {
	maxAttempts := 1 + o.cfg.MaxRegenerations

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		draft, err := o.completeWithRetry(ctx, d)
		if err != nil {
			if ctx.Err() != nil {
				return "", "", attempt, ctx.Err()
			}
			o.metrics.FallbacksTotal.WithLabelValues(reasonExternalFault).Inc()
			o.logger.Warn("generation unavailable, serving fallback",
				zap.String("turn_id", d.TurnID), zap.Error(err))
			return FallbackFor(d.State), TerminalFallback, attempt, nil
		}

		validateStart := time.Now()
		result := o.validator.Validate(draft, d.State, statePolicy)
		o.metrics.ObserveTurnStage(observability.StageValidate, time.Since(validateStart))

		if result.Passed {
			return draft, TerminalReleased, attempt, nil
		}

		for _, check := range result.Failed {
			o.metrics.GuardrailFailures.WithLabelValues(string(check)).Inc()
		}
		o.logger.Info("draft rejected by guardrails",
			zap.String("turn_id", d.TurnID),
			zap.Int("attempt", attempt),
			zap.Any("failed_checks", result.Failed))

		if attempt < maxAttempts {
			o.metrics.Regenerations.Inc()
			d.Corrections = correctionInstructions(result.Failed, statePolicy)
		}
	}

	o.metrics.FallbacksTotal.WithLabelValues(reasonGuardrailExhausted).Inc()
	return FallbackFor(d.State), TerminalFallback, maxAttempts, nil
}

// completeWithRetry calls the gateway with bounded retries on transient
// faults. Caller cancellation is never retried.
func (o *Orchestrator) completeWithRetry(ctx context.Context, d generation.Directive) (string, error) {
	var lastErr error
	for try := 0; try <= o.cfg.ExternalRetries; try++ {
		if try > 0 {
			delay := reliability.ExponentialBackoff(try-1, o.cfg.RetryBaseDelay, o.cfg.RetryMaxDelay)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, o.cfg.GatewayTimeout)
		start := time.Now()
		draft, err := o.gateway.Complete(callCtx, d)
		elapsed := time.Since(start)
		cancel()

		o.metrics.ObserveGatewayLatency(elapsed)
		o.metrics.ObserveTurnStage(observability.StageGenerate, elapsed)

		if err == nil {
			return draft, nil
		}
		lastErr = err
		o.metrics.ExternalErrors.WithLabelValues("generation").Inc()
		if !reliability.IsRetryable(err) {
			break
		}
	}
	return "", fmt.Errorf("generation failed after %d attempt(s): %w", o.cfg.ExternalRetries+1, lastErr)
}

// retrievePassages fetches knowledge for fact-needing states. Retrieval
// faults degrade the turn to generation without passages rather than
// failing it.
func (o *Orchestrator) retrievePassages(ctx context.Context, statePolicy conversation.ResponsePolicy, message string) []knowledge.Passage {
	if !statePolicy.NeedsKnowledge || o.retriever == nil {
		return nil
	}

	start := time.Now()
	defer func() {
		o.metrics.ObserveTurnStage(observability.StageRetrieve, time.Since(start))
	}()

	var lastErr error
	for try := 0; try <= o.cfg.ExternalRetries; try++ {
		if try > 0 {
			delay := reliability.ExponentialBackoff(try-1, o.cfg.RetryBaseDelay, o.cfg.RetryMaxDelay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
		}
		passages, err := o.retriever.Search(ctx, message, o.cfg.KnowledgeTopK)
		if err == nil {
			return passages
		}
		lastErr = err
		o.metrics.ExternalErrors.WithLabelValues("knowledge").Inc()
		if !reliability.IsRetryable(err) {
			break
		}
	}
	o.logger.Warn("knowledge retrieval failed, continuing without passages", zap.Error(lastErr))
	return nil
}

// buildDirective assembles the bounded generation payload: policy, memory
// projection, passages, and recent history, each capped independently.
func (o *Orchestrator) buildDirective(ctx context.Context, turn conversation.Turn, statePolicy conversation.ResponsePolicy, history []conversation.Turn, passages []knowledge.Passage) generation.Directive {
	d := generation.Directive{
		StudentID:    turn.StudentID,
		TurnID:       turn.ID,
		State:        turn.State,
		Goal:         statePolicy.Goal,
		Allowed:      statePolicy.Allowed,
		Forbidden:    statePolicy.Forbidden,
		MaxQuestions: statePolicy.MaxQuestions,
		Message:      turn.Message,
	}

	projection, err := o.store.ProjectForContext(ctx, turn.StudentID, o.cfg.MemoryLimit)
	if err != nil {
		o.metrics.ExternalErrors.WithLabelValues("memory").Inc()
		o.logger.Warn("memory projection failed", zap.String("student_id", turn.StudentID), zap.Error(err))
	}
	for _, fact := range projection {
		d.Memory = append(d.Memory, fmt.Sprintf("%s: %s", fact.Kind, fact.Value))
	}

	for i, p := range passages {
		if i >= o.cfg.KnowledgeTopK {
			break
		}
		d.Passages = append(d.Passages, p.Content)
	}

	for _, h := range history {
		d.History = append(d.History,
			fmt.Sprintf("Student: %s", h.Message),
			fmt.Sprintf("Buddy: %s", h.Released))
	}

	return d
}

// release persists the turn: extract and append memory facts from the
// student's message, record the turn in the session window, and count it.
func (o *Orchestrator) release(ctx context.Context, sessionID string, turn conversation.Turn, text, terminal string, attempts int, mineFacts bool) TurnResult {
	turn.Released = text
	turn.Terminal = terminal

	persistStart := time.Now()
	if mineFacts {
		for _, fact := range o.extractor.Extract(turn.StudentID, turn.Message) {
			if err := o.store.AppendFact(ctx, fact); err != nil {
				o.metrics.ExternalErrors.WithLabelValues("memory").Inc()
				o.logger.Warn("fact append failed",
					zap.String("student_id", turn.StudentID),
					zap.String("kind", string(fact.Kind)),
					zap.Error(err))
			}
		}
	}
	if err := o.sessions.RecordTurn(sessionID, turn); err != nil {
		o.logger.Warn("turn record failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	o.metrics.ObserveTurnStage(observability.StagePersist, time.Since(persistStart))

	o.metrics.TurnsTotal.WithLabelValues(turn.State.String(), terminal).Inc()
	if attempts <= 0 {
		attempts = 1
	}

	return TurnResult{
		TurnID:    turn.ID,
		SessionID: sessionID,
		State:     turn.State,
		Text:      text,
		Terminal:  terminal,
		Attempts:  attempts,
	}
}

// lockStudent serializes turns per student. Lock entries are tiny and the
// student population is bounded, so they are never reaped.
func (o *Orchestrator) lockStudent(studentID string) func() {
	o.mu.Lock()
	lock, ok := o.locks[studentID]
	if !ok {
		if o.locks == nil {
			o.locks = make(map[string]*sync.Mutex)
		}
		lock = &sync.Mutex{}
		o.locks[studentID] = lock
	}
	o.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// correctionInstructions turns failed checks into explicit fix-it lines
// for the regeneration prompt.
func correctionInstructions(failed []guardrail.CheckID, statePolicy conversation.ResponsePolicy) []string {
	out := make([]string, 0, len(failed))
	for _, check := range failed {
		switch check {
		case guardrail.CheckTopicConfinement:
			out = append(out, "Stay strictly on careers, education, and future planning.")
		case guardrail.CheckDirectRecommendation:
			out = append(out, "Do not tell the student what to choose or become; stay neutral and exploratory.")
		case guardrail.CheckScoringLabel:
			out = append(out, "Remove any scores, rankings, percentages, or labels applied to the student.")
		case guardrail.CheckQuestionBudget:
			out = append(out, fmt.Sprintf("Ask at most %d question(s).", statePolicy.MaxQuestions))
		case guardrail.CheckToneLength:
			out = append(out, "Shorten the reply and keep the tone warm and conversational, no long lists.")
		default:
			out = append(out, strings.ReplaceAll(string(check), "_", " "))
		}
	}
	return out
}
