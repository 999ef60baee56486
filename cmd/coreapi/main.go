// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Coreapi is the entry point for the corestack HTTP API server.

The server manages named time-series data split across a triple store
(metadata) and a relational database (samples), and a derived-quantity
recomputation graph anchored on the same triple store.

Usage:

	go run cmd/coreapi/main.go [flags]

The flags/environment variables are:

	SERVER_PORT             Port to listen on (default: 8080)
	ENVIRONMENT             deployment environment (development, production)
	DATABASE_URL            Postgres connection string (required)
	REDIS_URL               Redis connection string (required)
	SPARQL_QUERY_ENDPOINT   Triple-Store Gateway query endpoint (required)
	SPARQL_UPDATE_ENDPOINT  Triple-Store Gateway update endpoint (required)

Startup Sequence:

 1. Logger: Initialize structured JSON logging (slog).
 2. Config: Load and validate environment variables.
 3. Storage: Establish connections to Postgres and Redis.
 4. Migration: Run idempotent schema updates.
 5. Gateways: Construct the Triple-Store and Agent HTTP collaborators.
 6. Wiring: Inject dependencies into domain services/handlers.
 7. Server: Bind HTTP listener and handle graceful shutdown.

No business logic lives here. This file is strictly for orchestration and wiring.
*/
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

	"github.com/anchorgraph/corestack/internal/api"
	"github.com/anchorgraph/corestack/internal/derived"
	"github.com/anchorgraph/corestack/internal/gateway/agent"
	"github.com/anchorgraph/corestack/internal/gateway/sparql"
	"github.com/anchorgraph/corestack/internal/platform/config"
	"github.com/anchorgraph/corestack/internal/platform/constants"
	"github.com/anchorgraph/corestack/internal/platform/migration"
	pgstore "github.com/anchorgraph/corestack/internal/platform/postgres"
	redisstore "github.com/anchorgraph/corestack/internal/platform/redis"
	"github.com/anchorgraph/corestack/internal/platform/tslock"
	"github.com/anchorgraph/corestack/internal/timeseries"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application_startup_failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	// # 1. Logger
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries for trace correlation
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	log.Info("service_initializing")

	// # 2. Configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	// Adjust log level if debug mode is explicitly enabled
	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	dbURL, err := cfg.RequireDatabaseURL()
	if err != nil {
		return err
	}
	sparqlQueryEndpoint, sparqlUpdateEndpoint, err := cfg.RequireSparqlEndpoints()
	if err != nil {
		return err
	}

	// Root context for startup. A 30s deadline prevents the app from hanging.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// # 3. PostgreSQL
	pool, err := pgstore.NewPool(startupCtx, dbURL, log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// # 4. Redis
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// # 5. Migrations
	// Only the central lookup table is migration-managed; per-series data
	// tables are DDL issued directly by the storage module at runtime.
	if err := migration.RunUp(dbURL, cfg.MigrationPath, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	// # 6. Gateways
	sparqlClient := sparql.NewHTTPClient(sparqlQueryEndpoint, sparqlUpdateEndpoint)
	agentCaller := agent.NewHTTPCaller()

	// # 7. Health Wiring
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
		CheckTripleStore: func() error {
			_, err := sparqlClient.Ask(context.Background(), "ASK { ?s ?p ?o }")
			return err
		},
	}, log)

	// # 8. Time-Series Coordinator Wiring
	tsMetadata := timeseries.NewSparqlMetadataStore(sparqlClient)
	tsStorage := timeseries.NewPostgresStorage(constants.DefaultLookupTable, timeseries.TimeTimestamptz)
	tsCoordinator := timeseries.NewCoordinator(tsMetadata, tsStorage, pool, log)
	tsHandler := timeseries.NewHandler(tsCoordinator)

	// # 9. Derived-Quantity Engine Wiring
	derivedMetadata := derived.NewSparqlMetadataStore(sparqlClient)
	derivedEngine := derived.NewEngine(derivedMetadata, agentCaller, log)
	locker := tslock.New(rdb)
	derivedHandler := derived.NewHandler(derivedMetadata, derivedEngine, locker)

	// # 10. API Assembly
	handlers := api.Handlers{
		Liveness:   liveness,
		Readiness:  readiness,
		TimeSeries: tsHandler,
		Derived:    derivedHandler,
	}

	// Create a background context for the whole application lifecycle
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	server := api.NewServer(appCtx, cfg, log, handlers)

	// # 11. Lifecycle Handling
	shutdownErr := make(chan error, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownErr <- fmt.Errorf("http_server_crash: %w", err)
		}
	}()

	log.Info("coreapi_running", slog.String("port", cfg.ServerPort))

	// Block until signal or error
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-shutdownErr:
		return err
	}

	// Start Graceful Shutdown Sequence
	appCancel() // Signal background workers to stop

	log.Info("shutting_down_api_server", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		return fmt.Errorf("server_shutdown_failed: %w", err)
	}

	log.Info("graceful_shutdown_complete")
	return nil
}
