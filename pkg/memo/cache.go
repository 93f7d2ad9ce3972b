// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package memo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is the entry lifetime used when a Do call passes ttl <= 0.
//
// Upstream datasets refresh at most daily, so one day is the natural
// staleness bound.
const DefaultTTL = 24 * time.Hour

// ComputeFunc produces the value to cache on a miss.
type ComputeFunc func(ctx context.Context) (any, error)

// Cache memoizes expensive computations in a Store.
//
// Each cached call is identified by an operation name plus a SHA-256
// digest of its JSON-encoded arguments. Concurrent Do calls for the
// same key are collapsed into a single computation via singleflight.
//
// Thread Safety: safe for concurrent use.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
	flight singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithDefaultTTL overrides the default entry lifetime.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger sets the logger for cache diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Cache over the given store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		ttl:    DefaultTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key derives the store key for an operation and its arguments.
//
// Format: "<op>:<sha256 of JSON(args)>". The op prefix keeps keys
// groupable so Invalidate can drop one operation's entries wholesale.
func Key(op string, args ...any) string {
	encoded, err := json.Marshal(args)
	if err != nil {
		// Arguments are plain values in practice; fall back to %v
		// rather than failing the lookup.
		encoded = []byte(fmt.Sprintf("%v", args))
	}
	digest := sha256.Sum256(encoded)
	return op + ":" + hex.EncodeToString(digest[:])
}

// Do returns the cached result for (op, args) or computes and stores it.
//
// # Description
//
//	On a hit the stored bytes are unmarshaled into dest with no call to
//	compute. On a miss, compute runs (once across concurrent callers of
//	the same key), its result is JSON-marshaled, stored with the given
//	ttl, and unmarshaled into dest. A compute error is returned to the
//	caller and nothing is stored, so the next call retries.
//
// # Inputs
//
//	ctx - Context for cancellation, passed through to compute.
//	op - Operation name, e.g. "ospi.assessment".
//	args - Arguments identifying this call; must be JSON-encodable.
//	dest - Pointer the result is unmarshaled into.
//	ttl - Entry lifetime; ttl <= 0 uses the cache default.
//	compute - Produces the value on a miss.
//
// # Outputs
//
//	error - Non-nil if compute failed or (de)serialization failed.
func (c *Cache) Do(ctx context.Context, op string, args []any, dest any, ttl time.Duration, compute ComputeFunc) error {
	ctx, span := tracer.Start(ctx, "memo.Do",
		oteltrace.WithAttributes(attribute.String("memo.op", op)))
	defer span.End()

	start := time.Now()
	defer func() {
		recordDoLatency(ctx, op, time.Since(start).Seconds())
	}()

	key := Key(op, args...)

	if cached, found, err := c.store.Get(key); err == nil && found {
		if err := json.Unmarshal(cached, dest); err == nil {
			recordHit(ctx, op)
			span.SetAttributes(attribute.Bool("memo.hit", true))
			return nil
		}
		// Stored bytes no longer match the destination type (schema
		// drift across versions). Drop the entry and recompute.
		c.logger.Warn("memo entry unreadable, recomputing", "op", op, "key", key)
	} else if err != nil {
		c.logger.Warn("memo store read failed", "op", op, "error", err)
	}

	recordMiss(ctx, op)
	span.SetAttributes(attribute.Bool("memo.hit", false))

	if ttl <= 0 {
		ttl = c.ttl
	}

	encoded, err, _ := c.flight.Do(key, func() (any, error) {
		value, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("marshal %s result: %w", op, err)
		}
		if err := c.store.Set(key, data, ttl); err != nil {
			// A write failure degrades to uncached; the result is
			// still good.
			c.logger.Warn("memo store write failed", "op", op, "error", err)
		} else {
			recordStore(ctx, op)
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(encoded.([]byte), dest); err != nil {
		return fmt.Errorf("unmarshal %s result: %w", op, err)
	}
	return nil
}

// Invalidate removes all cached entries for an operation.
func (c *Cache) Invalidate(op string) error {
	return c.store.DeletePrefix(op + ":")
}

// Clear removes every cached entry.
func (c *Cache) Clear() error {
	return c.store.DeletePrefix("")
}
