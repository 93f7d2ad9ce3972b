// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/schoolscope/services/ospi"
)

// orgLevelFromParam maps the URL level segment onto the dataset's
// organization levels, "" on unknown input.
func orgLevelFromParam(level string) string {
	switch level {
	case "district", "districts":
		return ospi.LevelDistrict
	case "school", "schools":
		return ospi.LevelSchool
	}
	return ""
}

// EntityProfile handles GET /v1/orgs/:level/:id/profile?year=...
func EntityProfile(client *ospi.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgLevel := orgLevelFromParam(c.Param("level"))
		if orgLevel == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "level must be district or school"})
			return
		}

		profile := client.EntityProfile(c.Request.Context(), c.Param("id"), orgLevel, c.Query("year"))
		c.JSON(http.StatusOK, profile)
	}
}

// AssessmentTrend handles
// GET /v1/orgs/:level/:id/assessment/trend?subject=...&from=...&to=...
func AssessmentTrend(client *ospi.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgLevel := orgLevelFromParam(c.Param("level"))
		if orgLevel == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "level must be district or school"})
			return
		}
		subject := c.Query("subject")
		if subject == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter subject"})
			return
		}
		from, to := c.Query("from"), c.Query("to")
		if from == "" || to == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameters from/to"})
			return
		}

		trend := client.AssessmentTrend(c.Request.Context(), c.Param("id"), orgLevel, subject, from, to)
		c.JSON(http.StatusOK, gin.H{"subject": subject, "trend": trend})
	}
}

// GraduationTrend handles
// GET /v1/orgs/:level/:id/graduation/trend?from=...&to=...
func GraduationTrend(client *ospi.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		orgLevel := orgLevelFromParam(c.Param("level"))
		if orgLevel == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "level must be district or school"})
			return
		}
		from, to := c.Query("from"), c.Query("to")
		if from == "" || to == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameters from/to"})
			return
		}

		trend := client.GraduationTrend(c.Request.Context(), c.Param("id"), orgLevel, from, to)
		c.JSON(http.StatusOK, gin.H{"trend": trend})
	}
}

// DistrictSpending handles GET /v1/districts/:id/spending?year=...
//
// Spending is district-grain only; there is no school variant.
func DistrictSpending(client *ospi.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("id")
		year := c.Query("year")
		if year == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter year"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"district_code": code,
			"spending":      client.SpendingData(code, year),
		})
	}
}

// DistrictSpendingTrend handles GET /v1/districts/:id/spending/trend
func DistrictSpendingTrend(client *ospi.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("id")
		c.JSON(http.StatusOK, gin.H{
			"district_code": code,
			"trend":         client.SpendingTrend(code),
		})
	}
}

// DistrictSpendingCategories handles
// GET /v1/districts/:id/spending/categories
func DistrictSpendingCategories(client *ospi.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("id")
		categories := client.SpendingCategories(code)
		c.JSON(http.StatusOK, gin.H{
			"district_code": code,
			"categories":    categories,
		})
	}
}
