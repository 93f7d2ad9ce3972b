// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memo

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for memo operations.
var (
	tracer = otel.Tracer("schoolscope.memo")
	meter  = otel.Meter("schoolscope.memo")
)

// Metrics for memo operations.
var (
	memoHits      metric.Int64Counter
	memoMisses    metric.Int64Counter
	memoStores    metric.Int64Counter
	memoDoLatency metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		memoHits, err = meter.Int64Counter(
			"memo_hits_total",
			metric.WithDescription("Total number of memo cache hits"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		memoMisses, err = meter.Int64Counter(
			"memo_misses_total",
			metric.WithDescription("Total number of memo cache misses"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		memoStores, err = meter.Int64Counter(
			"memo_stores_total",
			metric.WithDescription("Total number of computed results stored"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		memoDoLatency, err = meter.Float64Histogram(
			"memo_do_duration_seconds",
			metric.WithDescription("Duration of memo Do operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordHit records a cache hit for op.
func recordHit(ctx context.Context, op string) {
	if err := initMetrics(); err != nil {
		return
	}
	memoHits.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// recordMiss records a cache miss for op.
func recordMiss(ctx context.Context, op string) {
	if err := initMetrics(); err != nil {
		return
	}
	memoMisses.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// recordStore records a stored computation result for op.
func recordStore(ctx context.Context, op string) {
	if err := initMetrics(); err != nil {
		return
	}
	memoStores.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// recordDoLatency records the duration of a Do call in seconds.
func recordDoLatency(ctx context.Context, op string, seconds float64) {
	if err := initMetrics(); err != nil {
		return
	}
	memoDoLatency.Record(ctx, seconds, metric.WithAttributes(attribute.String("op", op)))
}
