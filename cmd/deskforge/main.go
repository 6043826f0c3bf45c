package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	dfhttp "github.com/Strob0t/DeskForge/internal/adapter/http"
	"github.com/Strob0t/DeskForge/internal/adapter/litellm"
	dfnats "github.com/Strob0t/DeskForge/internal/adapter/nats"
	"github.com/Strob0t/DeskForge/internal/adapter/otel"
	"github.com/Strob0t/DeskForge/internal/adapter/postgres"
	"github.com/Strob0t/DeskForge/internal/adapter/ristretto"
	"github.com/Strob0t/DeskForge/internal/adapter/vectormq"
	"github.com/Strob0t/DeskForge/internal/config"
	"github.com/Strob0t/DeskForge/internal/logger"
	"github.com/Strob0t/DeskForge/internal/middleware"
	"github.com/Strob0t/DeskForge/internal/resilience"
	"github.com/Strob0t/DeskForge/internal/service"
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

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"confidence_threshold", cfg.Router.ConfidenceThreshold,
	)

	ctx := context.Background()

	// --- Telemetry ---
	if cfg.Telemetry.Enabled {
		shutdown, err := otel.Init(ctx, cfg.Logging.Service, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}
	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	queue, err := dfnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	searcher := vectormq.NewSearcher(queue, cfg.NATS.SearchTimeout)
	cancelSearch, err := searcher.StartSubscriber(ctx)
	if err != nil {
		return fmt.Errorf("vector search subscriber: %w", err)
	}
	defer cancelSearch()

	searchCache, err := ristretto.New(cfg.Retriever.CacheSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer func() {
		log.Info("retrieval cache closed", "hit_ratio", searchCache.HitRatio())
		searchCache.Close()
	}()

	breaker := resilience.NewBreaker(resilience.Settings{
		MaxFailures: cfg.Breaker.MaxFailures,
		ResetAfter:  cfg.Breaker.ResetAfter,
		CallTimeout: cfg.Breaker.CallTimeout,
		MaxRequests: cfg.Breaker.MaxRequests,
		RateWindow:  cfg.Breaker.RateWindow,
	})

	oracle := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey, cfg.LiteLLM.Model, cfg.LiteLLM.MaxTokens)
	oracle.SetBreaker(breaker)

	// --- Services ---
	store := postgres.NewStore(pool)
	auditSvc := service.NewAudit(store, log)
	rollbackSvc := service.NewRollback(store, auditSvc, log)
	pipeline := service.NewPipeline(service.PipelineDeps{
		Oracle:    oracle,
		Retriever: service.NewRetriever(store, searcher, searchCache, cfg.Retriever, log),
		Extractor: service.NewExtractor(oracle, log),
		Router:    service.NewRouter(oracle, cfg.Router.ConfidenceThreshold, log),
		Executors: []service.Executor{
			service.NewTicketExecutor(store),
			service.NewArticleExecutor(store),
			service.NewTeamExecutor(store),
		},
		Engine:    service.NewEngine(store, log),
		Breaker:   breaker,
		Rollback:  rollbackSvc,
		Audit:     auditSvc,
		Formatter: service.NewFormatter(),
		Metrics:   metrics,
		Logger:    log,
	})

	// --- HTTP ---
	health := map[string]dfhttp.HealthFunc{
		"postgres": func(c context.Context) error { return pool.Ping(c) },
		"nats": func(context.Context) error {
			if !queue.IsConnected() {
				return fmt.Errorf("disconnected")
			}
			return nil
		},
		"litellm": func(c context.Context) error {
			ok, err := oracle.Health(c)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("unhealthy")
			}
			return nil
		},
	}
	handlers := dfhttp.NewHandlers(pipeline, auditSvc, rollbackSvc, health, metrics, log)

	limiter := middleware.NewRateLimiter(cfg.Rate)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(dfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(limiter.Handler)
	r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	dfhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
		}
	}()

	<-done
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
