// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers holds the dashboard's HTTP handlers.
//
// Every data endpoint follows the fail-open contract of the underlying
// client: a source being down yields an empty payload with a 200, never
// a 5xx. The dashboard degrades to "no data" panels instead of erroring
// whole pages.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/schoolscope/services/ospi"
)

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// DatasetStatus probes every configured dataset and reports per-name
// reachability, for the dashboard's warning banner.
func DatasetStatus(client *ospi.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := client.ValidateDatasets(c.Request.Context())

		healthy := true
		for _, ok := range status {
			healthy = healthy && ok
		}
		if !healthy {
			slog.Warn("some datasets are unreachable", "status", status)
		}
		c.JSON(http.StatusOK, gin.H{"healthy": healthy, "datasets": status})
	}
}
