package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/buddy/internal/config"
	"github.com/ent0n29/buddy/internal/conversation"
	"github.com/ent0n29/buddy/internal/generation"
	"github.com/ent0n29/buddy/internal/httpapi"
	"github.com/ent0n29/buddy/internal/knowledge"
	"github.com/ent0n29/buddy/internal/memory"
	"github.com/ent0n29/buddy/internal/observability"
	"github.com/ent0n29/buddy/internal/orchestrator"
	"github.com/ent0n29/buddy/internal/ratelimit"
	"github.com/ent0n29/buddy/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	memoryStore, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("memory store init failed: %v", err)
	}
	defer memoryStore.Close()

	retriever, err := knowledge.NewRetriever(ctx, cfg.KnowledgeStorePath, cfg.KnowledgeSeedDir)
	if err != nil {
		log.Fatalf("knowledge retriever init failed: %v", err)
	}
	defer retriever.Close()

	gateway, err := generation.NewGateway(generation.Config{
		Mode:    cfg.GenerationMode,
		HTTPURL: cfg.GenerationHTTPURL,
	})
	if err != nil {
		log.Fatalf("generation gateway init failed: %v", err)
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout, cfg.HistoryWindow)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	orch := orchestrator.New(
		conversation.NewRuleClassifier(),
		gateway,
		memoryStore,
		retriever,
		sessions,
		metrics,
		logger,
		orchestrator.Config{
			MaxRegenerations: cfg.MaxRegenerations,
			ExternalRetries:  cfg.ExternalRetries,
			RetryBaseDelay:   cfg.RetryBaseDelay,
			RetryMaxDelay:    cfg.RetryMaxDelay,
			GatewayTimeout:   cfg.GenerationTimeout,
			MemoryLimit:      cfg.MemoryContextLimit,
			HistoryWindow:    cfg.HistoryWindow,
			KnowledgeTopK:    cfg.KnowledgeTopK,
		},
	)

	limiter := ratelimit.NewStudentLimiter(cfg.RateLimitMessages, cfg.RateLimitWindow)

	api := httpapi.New(cfg, sessions, orch, memoryStore, limiter, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	sessions.StartJanitor(runCtx, 5*time.Second)
	limiter.StartJanitor(runCtx, time.Minute)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
