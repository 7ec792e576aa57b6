// Package main is the entry point for the Commons depictions API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pkordes/commons-depicts/backend/internal/config"
	"github.com/pkordes/commons-depicts/backend/internal/handler"
	"github.com/pkordes/commons-depicts/backend/internal/logging"
	"github.com/pkordes/commons-depicts/backend/internal/middleware"
	"github.com/pkordes/commons-depicts/backend/internal/service"
	"github.com/pkordes/commons-depicts/backend/internal/thumbcache"
	"github.com/pkordes/commons-depicts/backend/internal/wikibase"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use the default logger before ours is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logLevel, ok := logging.ParseLevel(cfg.LogLevel)
	logger, err := logging.New(os.Stdout, cfg.LogFormat, logLevel)
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)
	if !ok {
		logger.Warn("unknown LOG_LEVEL, using info", "value", cfg.LogLevel)
	}

	// --- Store ------------------------------------------------------------
	ctx := context.Background()
	depicts, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open depiction store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// --- Remote API + cache -----------------------------------------------
	remote := wikibase.New(cfg.CommonsAPIURL, cfg.WikidataAPIURL,
		wikibase.WithHTTPClient(&http.Client{Timeout: cfg.RemoteTimeout}),
		wikibase.WithUserAgent(cfg.UserAgent),
	)
	thumbs, err := thumbcache.New(cfg.ThumbnailCacheSize)
	if err != nil {
		logger.Error("failed to create thumbnail cache", "error", err)
		os.Exit(1)
	}

	// --- Services ---------------------------------------------------------
	depictSvc := service.NewDepictService(depicts, remote, nil).WithLogger(logger)
	categorySvc := service.NewCategoryService(remote, nil)
	contributionSvc := service.NewContributionService(remote, thumbs, logger, service.ContributionConfig{
		Timeout: cfg.RemoteTimeout,
	})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Metrics → Logger →
	// Recoverer → CORS → MaxBodySize.
	// Recoverer catches panics and returns HTTP 500 instead of crashing.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(registry)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(metrics.Middleware)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Mount("/", handler.NewServer(depictSvc, categorySvc, contributionSvc, logger).Routes())

	// --- HTTP Server ------------------------------------------------------
	// Write timeout leaves room for a remote call plus our own work.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RemoteTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "addr", srv.Addr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
