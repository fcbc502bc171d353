package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ooyales/it-biz-dev-lite-sub000/internal/config"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/logger"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/observability"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/server/api"
	"github.com/ooyales/it-biz-dev-lite-sub000/internal/server/graph"
)

func main() {
	if err := run(); err != nil {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	logger.SetLogger(logger.NewConsoleLogger(os.Stderr, os.Getenv("LOG_LEVEL")))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.SetLogger(logger.NewConsoleLogger(os.Stderr, cfg.LogLevel))
	logger.Info("configuration loaded", "backend", cfg.Backend, "sources", cfg.LoadedFrom)

	ctx := context.Background()

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracing(ctx, observability.TracingConfig{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRate:  cfg.Tracing.SampleRate,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("flushing traces", "err", err)
			}
		}()
		logger.Info("tracing enabled", "endpoint", cfg.Tracing.Endpoint, "insecure", cfg.Tracing.Insecure)
	}

	metrics := observability.NewCollector("bizgraph")

	repo, err := graph.Open(ctx, cfg.Graph(), graph.Options{
		Metrics:     metrics,
		SearchLimit: cfg.SearchLimit,
	})
	if err != nil {
		return err
	}
	defer repo.Close(ctx)
	logger.Info("graph store ready", "backend", repo.Backend())

	apiServer := api.New(repo, metrics)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(apiServer.Instrument)

	apiServer.Routes(r)
	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting bizgraph server", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited")
	return nil
}
