// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server and the payment
// sweeper.
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

	"golang.org/x/sync/errgroup"

	"github.com/Shivanand-hulikatti/turfsplit/internal/config"
	"github.com/Shivanand-hulikatti/turfsplit/internal/database"
	"github.com/Shivanand-hulikatti/turfsplit/internal/handler"
	"github.com/Shivanand-hulikatti/turfsplit/internal/logging"
	"github.com/Shivanand-hulikatti/turfsplit/internal/metrics"
	"github.com/Shivanand-hulikatti/turfsplit/internal/payment"
	"github.com/Shivanand-hulikatti/turfsplit/internal/poll"
	"github.com/Shivanand-hulikatti/turfsplit/internal/repository"
	"github.com/Shivanand-hulikatti/turfsplit/internal/service"
	"github.com/Shivanand-hulikatti/turfsplit/internal/telemetry"
	"github.com/Shivanand-hulikatti/turfsplit/internal/worker"
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
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "turfsplit", cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	// ── 1. Open the session store ────────────────────────────────────────
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer store.Close()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	if cfg.CashfreeAppID == "" || cfg.CashfreeSecret == "" {
		slog.Warn("cashfree credentials are not set; online payments will fail")
	}
	gateway := payment.NewCashfree(cfg.CashfreeAppID, cfg.CashfreeSecret, cfg.CashfreeEnv)
	recorder := metrics.New()
	svc := service.NewSessionService(store, gateway, service.WithMetrics(recorder))

	viewers := poll.Every(cfg.PollInterval)
	sweeper := worker.NewPaymentSweeper(svc, poll.Every(cfg.PaymentSweepInterval), recorder)

	// ── 3. Build the router ───────────────────────────────────────────────
	router := handler.NewRouter(handler.NewSessionHandler(svc, viewers.Interval()), handler.RouterConfig{
		AdminPassword: cfg.AdminPassword,
		CORSOrigins:   cfg.CORSOriginList(),
		Metrics:       recorder.Handler(),
	})

	// ── 4. Start server and sweeper with graceful shutdown ────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr, "cashfree_env", cfg.CashfreeEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	driver, dsn, err := cfg.Database()
	if err != nil {
		return nil, err
	}

	switch driver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, dsn)
		if err != nil {
			return nil, err
		}
		slog.Info("connected to PostgreSQL")
		return repository.NewPostgresStore(pool), nil
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
		slog.Info("opened SQLite database", "path", dsn)
		return repository.NewSQLStore(db), nil
	case config.DriverLibSQL:
		db, err := database.OpenLibSQL(ctx, dsn)
		if err != nil {
			return nil, err
		}
		slog.Info("connected to libSQL")
		return repository.NewSQLStore(db), nil
	default:
		slog.Warn("using in-memory store; sessions are lost on restart")
		return repository.NewMemoryStore(), nil
	}
}
