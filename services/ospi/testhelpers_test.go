// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/schoolscope/services/ospi/config"
)

// datasetHandler serves one fake query: return rows, or a non-nil
// status override to simulate failures.
type datasetHandler func(datasetID string, params url.Values) (status int, rows []Row)

// fakeSocrata is an httptest stand-in for the remote dataset service.
type fakeSocrata struct {
	server *httptest.Server
	handle datasetHandler

	mu    sync.Mutex
	calls []string // dataset IDs in request order
}

func newFakeSocrata(t *testing.T, handle datasetHandler) *fakeSocrata {
	t.Helper()
	f := &fakeSocrata{handle: handle}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/resource/"), ".json")

		f.mu.Lock()
		f.calls = append(f.calls, id)
		f.mu.Unlock()

		status, rows := f.handle(id, r.URL.Query())
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if rows == nil {
			rows = []Row{}
		}
		_ = json.NewEncoder(w).Encode(rows)
	}))
	t.Cleanup(f.server.Close)
	return f
}

// callCount returns how many requests hit a dataset.
func (f *fakeSocrata) callCount(datasetID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.calls {
		if id == datasetID {
			n++
		}
	}
	return n
}

// totalCalls returns the number of requests served.
func (f *fakeSocrata) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// testSettings returns settings pointed at nothing real.
func testSettings(t *testing.T) config.Settings {
	t.Helper()
	s := config.Default()
	s.DataDir = t.TempDir()
	s.RequestTimeout = 5 * time.Second
	return s
}

// newTestClient builds a Client against a fake dataset service.
func newTestClient(t *testing.T, fake *fakeSocrata) *Client {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(testSettings(t),
		WithBaseURL(fake.server.URL),
		WithHTTPClient(fake.server.Client()),
		WithLogger(quiet))
}

// rowsOK is a datasetHandler returning the same rows for every call.
func rowsOK(rows []Row) datasetHandler {
	return func(string, url.Values) (int, []Row) {
		return http.StatusOK, rows
	}
}
