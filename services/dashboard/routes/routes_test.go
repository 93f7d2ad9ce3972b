// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/schoolscope/services/dashboard/middleware"
	"github.com/AleutianAI/schoolscope/services/ospi"
	"github.com/AleutianAI/schoolscope/services/ospi/combined"
	"github.com/AleutianAI/schoolscope/services/ospi/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	settings := config.Default()
	settings.DataDir = t.TempDir()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := ospi.NewClient(settings, ospi.WithLogger(quiet))
	analytics := combined.NewService(client, settings, quiet)

	router := gin.New()
	SetupRoutes(router, client, analytics, settings)
	return router
}

func TestSetupRoutes_RegistersAllEndpoints(t *testing.T) {
	router := testRouter(t)

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/v1/datasets/status"},
		{"GET", "/v1/schools/search"},
		{"GET", "/v1/districts/search"},
		{"GET", "/v1/districts"},
		{"GET", "/v1/orgs/:level/:id/profile"},
		{"GET", "/v1/orgs/:level/:id/assessment/trend"},
		{"GET", "/v1/orgs/:level/:id/graduation/trend"},
		{"GET", "/v1/districts/:id/spending"},
		{"GET", "/v1/districts/:id/spending/trend"},
		{"GET", "/v1/districts/:id/spending/categories"},
		{"GET", "/v1/analytics/districts"},
		{"GET", "/v1/analytics/schools"},
		{"GET", "/v1/analytics/metrics"},
		{"GET", "/v1/analytics/:level/correlation"},
		{"GET", "/v1/analytics/:level/export"},
	}

	routes := router.Routes()
	for _, want := range expected {
		found := false
		for _, r := range routes {
			if r.Method == want.method && r.Path == want.path {
				found = true
				break
			}
		}
		assert.True(t, found, "missing route %s %s", want.method, want.path)
	}
}

func TestSetupRoutes_HealthEndpoint(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSetupRoutes_RequestIDAttached(t *testing.T) {
	router := testRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	// A caller-supplied ID survives the hop.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}
