package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	gkhttp "github.com/Strob0t/Gatekeeper/internal/adapter/http"
	"github.com/Strob0t/Gatekeeper/internal/adapter/memory"
	gknats "github.com/Strob0t/Gatekeeper/internal/adapter/nats"
	"github.com/Strob0t/Gatekeeper/internal/adapter/otel"
	"github.com/Strob0t/Gatekeeper/internal/adapter/postgres"
	"github.com/Strob0t/Gatekeeper/internal/adapter/ristretto"
	"github.com/Strob0t/Gatekeeper/internal/adapter/ws"
	"github.com/Strob0t/Gatekeeper/internal/config"
	"github.com/Strob0t/Gatekeeper/internal/domain/tool"
	"github.com/Strob0t/Gatekeeper/internal/executor"
	"github.com/Strob0t/Gatekeeper/internal/logger"
	"github.com/Strob0t/Gatekeeper/internal/middleware"
	"github.com/Strob0t/Gatekeeper/internal/port/audit"
	"github.com/Strob0t/Gatekeeper/internal/port/database"
	"github.com/Strob0t/Gatekeeper/internal/ratelimit"
	"github.com/Strob0t/Gatekeeper/internal/resilience"
	"github.com/Strob0t/Gatekeeper/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"store", storeKind(cfg),
	)

	ctx := context.Background()

	// --- Observability ---
	shutdownMeter, err := otel.InitMeter(ctx, cfg.Otel.Endpoint, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownMeter(shutdownCtx)
	}()

	shutdownTracer, err := otel.InitTracer(ctx, cfg.Otel.Endpoint, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(shutdownCtx)
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Tool catalog ---
	catalog, err := loadCatalog(cfg.Catalog.Path)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	slog.Info("catalog loaded", "tools", catalog.Len())

	// --- Storage ---
	var store database.ProposalStore
	if cfg.Postgres.DSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		store = postgres.NewStore(pool)
		slog.Info("postgres connected")
	} else {
		store = memory.NewStore()
		slog.Info("using in-memory proposal store")
	}

	// --- Audit stream ---
	var pub audit.Publisher = audit.Nop{}
	if cfg.NATS.URL != "" {
		natsPub, err := gknats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = natsPub.Close() }()
		pub = natsPub
	}

	// --- Notice cache ---
	noticeCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer noticeCache.Close()

	// --- Guardrail components ---
	limiter := ratelimit.New(map[ratelimit.Scope]ratelimit.Config{
		ratelimit.ScopeIP:      {Window: cfg.Rate.IPWindow, Max: cfg.Rate.IPMax},
		ratelimit.ScopeSession: {Window: cfg.Rate.SessionWindow, Max: cfg.Rate.SessionMax},
		ratelimit.ScopeTool:    {Window: cfg.Rate.ToolWindow, Max: cfg.Rate.ToolMax},
	}, cfg.Rate.MaxBuckets)

	breakers := resilience.NewRegistry(resilience.Settings{
		MaxFailures: cfg.Breaker.MaxFailures,
		Cooldown:    cfg.Breaker.Cooldown,
		MaxTurns:    cfg.Breaker.MaxTurns,
		SweepEvery:  cfg.Breaker.SweepEvery,
		MaxSessions: cfg.Breaker.MaxSessions,
	})

	execs := executor.NewRegistry()
	registerExecutors(execs)

	// A write-capable tool without an executor must fail the deploy, not the
	// first confirmed proposal.
	if err := execs.ValidateComplete(catalog.WriteTools()); err != nil {
		return err
	}

	// --- Services ---
	hub := ws.NewHub()
	notices := service.NewNoticeService(noticeCache, cfg.Cache.NoticeTTL, hub)
	proposals := service.NewProposalService(store, execs, cfg.Proposals.TTL, hub, pub, metrics)
	sessions := service.NewSessionTracker(cfg.Breaker.SweepEvery, cfg.Breaker.MaxSessions)

	stopSweep := proposals.StartExpirySweep(cfg.Proposals.SweepInterval)
	defer stopSweep()

	orch := service.NewOrchestrator(service.OrchestratorDeps{
		Limiter:   limiter,
		Breakers:  breakers,
		Catalog:   catalog,
		Executors: execs,
		Proposals: proposals,
		Notices:   notices,
		Sessions:  sessions,
		Hub:       hub,
		Audit:     pub,
		Metrics:   metrics,
	})

	// --- HTTP ---
	handlers := gkhttp.NewHandlers(orch, notices)

	r := chi.NewRouter()
	r.Use(otel.HTTPMiddleware)
	r.Use(middleware.RequestID)
	// No RealIP middleware: the ip rate limit keys on the socket address.
	// Rewriting RemoteAddr from forwarded headers would let callers rotate
	// X-Forwarded-For to mint a fresh bucket per request.
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.TenantID)
	r.Use(middleware.IPRateLimit(limiter))

	r.Get("/health", healthHandler(hub, breakers, limiter))
	r.Get("/ws", hub.HandleWS)

	gkhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// loadCatalog reads the catalog file when configured and falls back to the
// built-in reference catalog otherwise.
func loadCatalog(path string) (*tool.Catalog, error) {
	if path == "" {
		return tool.DefaultCatalog(), nil
	}
	return tool.LoadCatalog(path)
}

func storeKind(cfg *config.Config) string {
	if cfg.Postgres.DSN != "" {
		return "postgres"
	}
	return "memory"
}

// healthHandler returns an http.HandlerFunc that reports service health.
func healthHandler(hub *ws.Hub, breakers *resilience.Registry, limiter *ratelimit.Limiter) http.HandlerFunc {
	type healthStatus struct {
		Status        string `json:"status"`
		WSConnections int    `json:"ws_connections"`
		Breakers      int    `json:"breakers"`
		RateBuckets   int    `json:"rate_buckets"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		status := healthStatus{
			Status:        "ok",
			WSConnections: hub.ConnectionCount(),
			Breakers:      breakers.Len(),
			RateBuckets:   limiter.Len(),
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
