package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	mwhttp "github.com/Strob0t/MailWarden/internal/adapter/http"
	mwnats "github.com/Strob0t/MailWarden/internal/adapter/nats"
	"github.com/Strob0t/MailWarden/internal/adapter/natskv"
	mwotel "github.com/Strob0t/MailWarden/internal/adapter/otel"
	"github.com/Strob0t/MailWarden/internal/adapter/postgres"
	"github.com/Strob0t/MailWarden/internal/adapter/ristretto"
	"github.com/Strob0t/MailWarden/internal/adapter/tiered"
	"github.com/Strob0t/MailWarden/internal/adapter/ws"
	"github.com/Strob0t/MailWarden/internal/config"
	"github.com/Strob0t/MailWarden/internal/logger"
	"github.com/Strob0t/MailWarden/internal/middleware"
	"github.com/Strob0t/MailWarden/internal/service"
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
		"pg_max_conns", cfg.Postgres.MaxConns,
		"narrative_provider", cfg.Narrative.Provider,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	shutdownOTel, err := mwotel.Init(ctx, mwotel.Config{
		Enabled:     cfg.OTel.Enabled,
		Endpoint:    cfg.OTel.Endpoint,
		Insecure:    cfg.OTel.Insecure,
		ServiceName: cfg.OTel.ServiceName,
		SampleRate:  cfg.OTel.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(flushCtx); err != nil {
			log.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := mwotel.NewMetrics()
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

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	if v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN); err == nil {
		log.Info("migrations applied", "version", v)
	} else {
		log.Warn("migration version unavailable", "error", err)
	}

	queue, err := mwnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()
	l2, err := natskv.OpenBucket(ctx, queue.JetStream(), cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("l2 cache: %w", err)
	}
	viewCache := tiered.New(l1, l2, cfg.Cache.L1TTL, log)

	// --- Services ---

	policy := cfg.Coordination.Policy()

	gen, narrativeCheck := newNarrative(cfg, log)
	explainer := service.NewExplainer(gen, service.ExplainerConfig{
		Provider:    cfg.Narrative.Provider,
		Timeout:     cfg.Narrative.Timeout,
		MaxTokens:   cfg.Narrative.MaxTokens,
		Temperature: cfg.Narrative.Temperature,
		Thresholds:  policy.Thresholds,
	}, log)

	coordinator := service.NewCoordinationService(policy, explainer, log)
	coordinator.SetMetrics(metrics)

	hub := ws.NewHub(cfg.Server.CORSOrigin, log)
	defer hub.CloseAll()

	store := postgres.NewStore(pool)
	assessments := service.NewAssessmentService(coordinator, store, log)
	assessments.SetCache(viewCache, cfg.Cache.L2TTL)
	assessments.SetQueue(queue)
	assessments.SetBroadcaster(hub)

	alerts, err := newAlerts(cfg.Alerts, policy, log)
	if err != nil {
		return err
	}
	assessments.SetAlerts(alerts)

	stopIntake := func() {}
	if cfg.NATS.Intake {
		cancelIntake, err := assessments.StartIntake(ctx)
		if err != nil {
			return fmt.Errorf("coordination intake: %w", err)
		}
		stopIntake = cancelIntake
		defer cancelIntake()
	}

	// --- HTTP ---

	handlers := mwhttp.NewHandlers(assessments, healthChecks(pool, queue, narrativeCheck))
	handlers.Weights = policy.Weights

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(mwotel.HTTPMiddleware(cfg.OTel.ServiceName))
	r.Use(mwhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(mwhttp.SecurityHeaders)
	r.Use(mwhttp.Logger(log))
	r.Use(chimw.Recoverer)

	r.Get("/ws", hub.HandleWS)
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
		mwhttp.MountRoutes(r, handlers, mwhttp.RouteOptions{
			AnalyzeLimit: limiter.Handler,
			Idempotency:  middleware.Idempotency(viewCache, cfg.Cache.L2TTL),
		})
	})

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	hub.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	// The intake can still start alert dispatches until it is stopped.
	stopIntake()
	alerts.Wait()
	if err := queue.Drain(); err != nil {
		log.Warn("nats drain", "error", err)
	}
	return nil
}

// healthChecks builds the dependency probes reported by /health.
func healthChecks(pool *pgxpool.Pool, queue *mwnats.Queue, narrative mwhttp.HealthCheck) map[string]mwhttp.HealthCheck {
	checks := map[string]mwhttp.HealthCheck{
		"postgres": pool.Ping,
		"nats": func(context.Context) error {
			if !queue.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		},
	}
	if narrative != nil {
		checks["narrative"] = narrative
	}
	return checks
}
