// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/schoolscope/services/dashboard/handlers"
	"github.com/AleutianAI/schoolscope/services/dashboard/middleware"
	"github.com/AleutianAI/schoolscope/services/ospi"
	"github.com/AleutianAI/schoolscope/services/ospi/combined"
	"github.com/AleutianAI/schoolscope/services/ospi/config"
)

// SetupRoutes registers the dashboard API.
//
// Endpoints:
//
//	GET /health - Liveness check
//	GET /v1/datasets/status - Per-dataset reachability
//
//	GET /v1/schools/search - School name search
//	GET /v1/districts/search - District name search
//	GET /v1/districts - All districts
//
//	GET /v1/orgs/:level/:id/profile - Full entity profile
//	GET /v1/orgs/:level/:id/assessment/trend - Proficiency over years
//	GET /v1/orgs/:level/:id/graduation/trend - Graduation over years
//
//	GET /v1/districts/:id/spending - One year's F-196 spending
//	GET /v1/districts/:id/spending/trend - Per-pupil trend
//	GET /v1/districts/:id/spending/categories - Program breakdown
//
//	GET /v1/analytics/districts - Combined district dataset
//	GET /v1/analytics/schools - Combined school dataset
//	GET /v1/analytics/metrics - Metric registry
//	GET /v1/analytics/:level/correlation - Metric correlation
//	GET /v1/analytics/:level/export - Dataset as CSV
func SetupRoutes(router *gin.Engine, client *ospi.Client, analytics *combined.Service, settings config.Settings) {
	router.Use(middleware.RequestID())

	router.GET("/health", handlers.HealthCheck)

	v1 := router.Group("/v1")
	{
		v1.GET("/datasets/status", handlers.DatasetStatus(client))

		v1.GET("/schools/search", handlers.SearchSchools(client, settings))
		v1.GET("/districts/search", handlers.SearchDistricts(client, settings))
		v1.GET("/districts", handlers.ListDistricts(client))

		orgs := v1.Group("/orgs/:level/:id")
		{
			orgs.GET("/profile", handlers.EntityProfile(client))
			orgs.GET("/assessment/trend", handlers.AssessmentTrend(client))
			orgs.GET("/graduation/trend", handlers.GraduationTrend(client))
		}

		spending := v1.Group("/districts/:id/spending")
		{
			spending.GET("", handlers.DistrictSpending(client))
			spending.GET("/trend", handlers.DistrictSpendingTrend(client))
			spending.GET("/categories", handlers.DistrictSpendingCategories(client))
		}

		analyticsGroup := v1.Group("/analytics")
		{
			analyticsGroup.GET("/districts", handlers.AnalyticsDistricts(analytics))
			analyticsGroup.GET("/schools", handlers.AnalyticsSchools(analytics))
			analyticsGroup.GET("/metrics", handlers.AnalyticsMetrics())
			analyticsGroup.GET("/:level/correlation", handlers.Correlation(analytics))
			analyticsGroup.GET("/:level/export", handlers.ExportCSV(analytics))
		}
	}
}
