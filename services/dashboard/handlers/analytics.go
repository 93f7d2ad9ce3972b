// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/schoolscope/services/ospi"
	"github.com/AleutianAI/schoolscope/services/ospi/combined"
)

// AnalyticsDistricts handles GET /v1/analytics/districts
func AnalyticsDistricts(svc *combined.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.AllDistrictData(c.Request.Context()))
	}
}

// AnalyticsSchools handles GET /v1/analytics/schools
func AnalyticsSchools(svc *combined.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.AllSchoolData(c.Request.Context()))
	}
}

// AnalyticsMetrics handles GET /v1/analytics/metrics?level=...
//
// Serves the metric registry so the UI can build its axis pickers
// without hardcoding keys.
func AnalyticsMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		level := orgLevelFromParam(c.DefaultQuery("level", "district"))
		if level == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "level must be district or school"})
			return
		}
		registry := combined.DistrictMetrics
		if level == ospi.LevelSchool {
			registry = combined.SchoolMetrics
		}
		c.JSON(http.StatusOK, gin.H{"metrics": registry})
	}
}

// Correlation handles GET /v1/analytics/:level/correlation?x=...&y=...
func Correlation(svc *combined.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		level := orgLevelFromParam(c.Param("level"))
		if level == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "level must be districts or schools"})
			return
		}
		x, y := c.Query("x"), c.Query("y")
		if x == "" || y == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameters x/y"})
			return
		}

		ds := svc.AllDistrictData(c.Request.Context())
		if level == ospi.LevelSchool {
			ds = svc.AllSchoolData(c.Request.Context())
		}

		result, err := combined.Analyze(ds, x, y, c.Query("highlight"))
		if errors.Is(err, combined.ErrTooFewPoints) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// ExportCSV handles GET /v1/analytics/:level/export
func ExportCSV(svc *combined.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		level := orgLevelFromParam(c.Param("level"))
		if level == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "level must be districts or schools"})
			return
		}

		ds := svc.AllDistrictData(c.Request.Context())
		name := "districts"
		if level == ospi.LevelSchool {
			ds = svc.AllSchoolData(c.Request.Context())
			name = "schools"
		}

		filename := fmt.Sprintf("schoolscope_%s_%s.csv", name, time.Now().Format("2006-01-02"))
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := ds.WriteCSV(c.Writer); err != nil {
			// Headers are out by now; all we can do is log via gin's
			// error list and cut the stream.
			_ = c.Error(err)
		}
	}
}
