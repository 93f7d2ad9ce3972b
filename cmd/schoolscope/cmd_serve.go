// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"

	"github.com/AleutianAI/schoolscope/pkg/logging"
	"github.com/AleutianAI/schoolscope/pkg/memo"
	"github.com/AleutianAI/schoolscope/services/dashboard/routes"
	"github.com/AleutianAI/schoolscope/services/ospi"
	"github.com/AleutianAI/schoolscope/services/ospi/combined"
	"github.com/AleutianAI/schoolscope/services/ospi/config"
	"github.com/AleutianAI/schoolscope/services/ospi/finance"
)

const serviceName = "schoolscope-dashboard"

// initTracer wires the OTLP trace exporter when a collector endpoint
// is configured; tracing is optional in local development.
func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "localhost:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// newLogger builds the process logger from the persistent flags.
func newLogger() *logging.Logger {
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: serviceName,
		JSON:    true,
	})
}

// loadSettings resolves configuration: defaults, then the registry
// file, then environment overrides (applied inside Load).
func loadSettings(logger *logging.Logger) config.Settings {
	settings, err := config.Load(datasetsPath)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if !settings.HasAppToken() {
		logger.Warn("no SOCRATA_APP_TOKEN set, requests will be throttled aggressively")
	}
	return settings
}

// newClient assembles the ospi client: Badger-backed memo cache when a
// cache directory is configured, in-memory otherwise.
func newClient(settings config.Settings, logger *logging.Logger) *ospi.Client {
	opts := []ospi.ClientOption{ospi.WithLogger(logger.Slog())}

	if settings.CacheDir != "" {
		store, err := memo.OpenBadgerStore(memo.DefaultBadgerConfig(settings.CacheDir))
		if err != nil {
			logger.Warn("badger cache unavailable, falling back to memory",
				"dir", settings.CacheDir, "error", err)
		} else {
			opts = append(opts, ospi.WithCache(memo.New(store,
				memo.WithDefaultTTL(settings.CacheTTL),
				memo.WithLogger(logger.Slog()))))
		}
	}
	return ospi.NewClient(settings, opts...)
}

func runServe(cmd *cobra.Command, args []string) {
	logger := newLogger()
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cleanup, err := initTracer()
	if err != nil {
		logger.Warn("OTLP tracer unavailable, continuing without export", "error", err)
	} else {
		defer cleanup(context.Background())
	}

	settings := loadSettings(logger)
	client := newClient(settings, logger)
	analytics := combined.NewService(client, settings, logger.Slog())

	// Reload the F-196 tables when the files change on disk, and drop
	// every memoized answer derived from them.
	watcher, err := finance.NewWatcher(
		[]string{settings.SpendingCSV(), settings.ProgramsCSV()},
		func() {
			client.Finance().Reload()
			if err := client.Cache().Invalidate("combined.districts"); err != nil {
				logger.Warn("cache invalidation failed", "error", err)
			}
		},
		logger.Slog())
	if err != nil {
		logger.Warn("financial table watcher unavailable", "error", err)
	} else if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("financial table watcher failed to start", "error", err)
	} else {
		defer watcher.Stop()
	}

	if !skipWarm {
		go analytics.Warm(context.Background())
	}

	router := gin.Default()
	router.Use(otelgin.Middleware(serviceName))
	routes.SetupRoutes(router, client, analytics, settings)

	logger.Info("starting dashboard server", "port", port, "domain", settings.Domain)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
