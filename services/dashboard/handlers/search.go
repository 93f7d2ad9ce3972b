// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/schoolscope/services/ospi"
	"github.com/AleutianAI/schoolscope/services/ospi/config"
)

// SearchSchools handles GET /v1/schools/search?q=...&limit=...
func SearchSchools(client *ospi.Client, settings config.Settings) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
			return
		}

		limit := parseLimit(c.Query("limit"), settings.MaxSearchResults)
		schools := client.SearchSchools(c.Request.Context(), query, limit)
		if schools == nil {
			schools = []ospi.School{}
		}
		c.JSON(http.StatusOK, gin.H{"query": query, "schools": schools})
	}
}

// SearchDistricts handles GET /v1/districts/search?q=...&limit=...
func SearchDistricts(client *ospi.Client, settings config.Settings) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
			return
		}

		limit := parseLimit(c.Query("limit"), settings.MaxSearchResults)
		districts := client.SearchDistricts(c.Request.Context(), query, limit)
		if districts == nil {
			districts = []ospi.District{}
		}
		c.JSON(http.StatusOK, gin.H{"query": query, "districts": districts})
	}
}

// ListDistricts handles GET /v1/districts
func ListDistricts(client *ospi.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		districts := client.AllDistricts(c.Request.Context())
		if districts == nil {
			districts = []ospi.District{}
		}
		c.JSON(http.StatusOK, gin.H{"districts": districts})
	}
}

// parseLimit clamps a limit parameter to (0, max].
func parseLimit(raw string, max int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > max {
		return max
	}
	return n
}
