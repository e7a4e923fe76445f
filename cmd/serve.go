package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/catalog"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/config"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/handler"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/identity"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/service"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/telemetry"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Tracing ────────────────────────────────────────────────────────
	tracing, err := telemetry.NewProvider(cfg.TracingEnabled)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", "err", err)
		}
	}()

	// ── 2. Connect to storage ─────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 3. Wire up layers ─────────────────────────────────────────────────
	cat, err := catalog.New(cfg.CatalogSource, store, cfg.CatalogTTL)
	if err != nil {
		return err
	}
	tokens, err := identity.NewJWT(cfg.Auth, nil)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	svc := service.NewRegistrationService(store, cat,
		service.WithUnitCost(cfg.UnitCost),
		service.WithLogger(logger),
		service.WithMetrics(m),
	)
	h := handler.New(handler.Deps{
		Sessions:      identity.NewResolver(tokens, store, logger),
		Registrations: svc,
		Meetings:      store,
		Catalog:       cat,
		Health:        store,
		SessionCookie: cfg.SessionCookie,
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(h, handler.RouterOptions{Logger: logger, Metrics: m, Gatherer: registry}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", srv.Addr, "storage", cfg.StorageDriver, "catalog", cfg.CatalogSource, "unit_cost", cfg.UnitCost)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
