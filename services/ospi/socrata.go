// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ospi fetches and normalizes Washington public-school data
// from the data.wa.gov Socrata datasets and the F-196 financial tables.
//
// The Client is the single gateway to the remote datasets. Its query
// surface fails open: transport errors, bad status codes, and
// undecodable payloads all come back as empty row sets so consumers
// render "no data" instead of crashing. Category fetches normalize the
// loosely-typed rows into the typed records in types.go and memoize
// results in a pkg/memo cache.
package ospi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/schoolscope/pkg/memo"
	"github.com/AleutianAI/schoolscope/services/ospi/config"
	"github.com/AleutianAI/schoolscope/services/ospi/finance"
)

var tracer = otel.Tracer("schoolscope.ospi")

// Default query bounds, matching the remote service's row-per-call cap.
const (
	defaultQueryLimit  = 10000
	defaultBatchSize   = 10000
	defaultMaxTotal    = 100000
	allDistrictsLimit  = 500
	defaultSearchLimit = 50
)

// Row is one raw dataset row: field name to loosely-typed value.
type Row map[string]any

// Str returns the row's value for key rendered as a string.
//
// Socrata encodes nearly everything as strings, but counts occasionally
// arrive as JSON numbers; both render cleanly. Missing fields and
// non-scalar values return "".
func (r Row) Str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// QueryOptions carries the SoQL clauses for one dataset query.
type QueryOptions struct {
	Select string
	Where  string
	Order  string
	Limit  int // defaults to 10000
	Offset int
}

// Client queries the Socrata datasets and the local financial tables.
//
// Construct one Client at process start and inject it everywhere; it is
// safe for concurrent use and holds the only mutable shared state in
// this subsystem (the memo cache).
type Client struct {
	settings config.Settings
	http     *http.Client
	limiter  *rate.Limiter
	cache    *memo.Cache
	logger   *slog.Logger
	baseURL  string
	spending *finance.Source
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient substitutes the transport, mainly for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.http = httpClient }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBaseURL points the client at an alternate endpoint, e.g. an
// httptest server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithCache substitutes the memo cache, e.g. one over a Badger store.
func WithCache(cache *memo.Cache) ClientOption {
	return func(c *Client) {
		if cache != nil {
			c.cache = cache
		}
	}
}

// WithFinance substitutes the F-196 table source.
func WithFinance(source *finance.Source) ClientOption {
	return func(c *Client) {
		if source != nil {
			c.spending = source
		}
	}
}

// NewClient creates a Client for the configured domain and datasets.
func NewClient(settings config.Settings, opts ...ClientOption) *Client {
	c := &Client{
		settings: settings,
		http:     &http.Client{Timeout: settings.RequestTimeout},
		// Socrata throttles unauthenticated clients hard; stay
		// comfortably under the app-token allowance either way.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
		logger:  slog.Default(),
		baseURL: "https://" + settings.Domain,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.cache = memo.New(memo.NewMemoryStore(),
			memo.WithDefaultTTL(settings.CacheTTL),
			memo.WithLogger(c.logger))
	}
	if c.spending == nil {
		c.spending = finance.NewSource(settings.SpendingCSV(), settings.ProgramsCSV(), c.logger)
	}
	return c
}

// Cache exposes the memo cache for invalidation wiring.
func (c *Client) Cache() *memo.Cache {
	return c.cache
}

// Finance exposes the F-196 table source for reload wiring.
func (c *Client) Finance() *finance.Source {
	return c.spending
}

// Query executes one SoQL query against a dataset.
//
// # Description
//
//	Fail-open gateway contract: on any transport error, non-2xx
//	status, or undecodable payload, Query logs a warning and returns
//	an empty row set. Callers must treat "no rows" and "source
//	unreachable" identically.
func (c *Client) Query(ctx context.Context, datasetID string, q QueryOptions) []Row {
	rows, err := c.queryRows(ctx, datasetID, q)
	if err != nil {
		c.logger.Warn("dataset query failed", "dataset", datasetID, "error", err)
		return []Row{}
	}
	return rows
}

// PaginatedQuery fetches up to maxTotal rows in batchSize pages.
//
// # Description
//
//	Pages until a batch comes back short (end of data) or maxTotal is
//	reached. An error on any page stops paging and returns the rows
//	already collected; page-1 errors therefore return an empty set,
//	preserving the fail-open contract.
func (c *Client) PaginatedQuery(ctx context.Context, datasetID string, batchSize, maxTotal int, q QueryOptions) []Row {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxTotal <= 0 {
		maxTotal = defaultMaxTotal
	}

	collected := make([]Row, 0, batchSize)
	for offset := 0; offset < maxTotal; offset += batchSize {
		page := q
		page.Limit = batchSize
		page.Offset = offset

		rows, err := c.queryRows(ctx, datasetID, page)
		if err != nil {
			c.logger.Warn("paginated query failed, keeping collected pages",
				"dataset", datasetID, "offset", offset, "error", err)
			break
		}
		collected = append(collected, rows...)
		if len(rows) < batchSize {
			break
		}
	}
	return collected
}

// RawQuery is the error-returning variant of Query for callers that
// memoize results themselves: a transport failure must abort their
// cache write, not be stored as an empty answer.
func (c *Client) RawQuery(ctx context.Context, datasetID string, q QueryOptions) ([]Row, error) {
	return c.queryRows(ctx, datasetID, q)
}

// RawPaginatedQuery pages like PaginatedQuery but surfaces the first
// page error instead of silently keeping partial results.
func (c *Client) RawPaginatedQuery(ctx context.Context, datasetID string, batchSize, maxTotal int, q QueryOptions) ([]Row, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if maxTotal <= 0 {
		maxTotal = defaultMaxTotal
	}

	collected := make([]Row, 0, batchSize)
	for offset := 0; offset < maxTotal; offset += batchSize {
		page := q
		page.Limit = batchSize
		page.Offset = offset

		rows, err := c.queryRows(ctx, datasetID, page)
		if err != nil {
			return nil, err
		}
		collected = append(collected, rows...)
		if len(rows) < batchSize {
			break
		}
	}
	return collected, nil
}

// queryRows is the error-returning query core.
//
// The cached fetch methods call this inside their compute functions so
// a transport failure aborts the cache write; the public Query wrapper
// converts the error to an empty result at the gateway boundary.
func (c *Client) queryRows(ctx context.Context, datasetID string, q QueryOptions) ([]Row, error) {
	ctx, span := tracer.Start(ctx, "ospi.query",
		oteltrace.WithAttributes(attribute.String("dataset.id", datasetID)))
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}

	params := url.Values{}
	params.Set("$limit", strconv.Itoa(limit))
	if q.Select != "" {
		params.Set("$select", q.Select)
	}
	if q.Where != "" {
		params.Set("$where", q.Where)
	}
	if q.Order != "" {
		params.Set("$order", q.Order)
	}
	if q.Offset > 0 {
		params.Set("$offset", strconv.Itoa(q.Offset))
	}

	endpoint := fmt.Sprintf("%s/resource/%s.json?%s", c.baseURL, datasetID, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.settings.HasAppToken() {
		req.Header.Set("X-App-Token", c.settings.AppToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dataset %s: unexpected status %d", datasetID, resp.StatusCode)
	}

	var rows []Row
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("dataset %s: decode response: %w", datasetID, err)
	}

	span.SetAttributes(attribute.Int("rows.count", len(rows)))
	return rows, nil
}
