// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import "context"

// Cohort names used by the graduation datasets.
const (
	CohortFourYear = "Four Year"
	CohortFiveYear = "Five Year"
)

// graduationDatasetFor picks the dataset generation covering a year.
func (c *Client) graduationDatasetFor(schoolYear string) string {
	if startYearOf(schoolYear) >= 2024 {
		return c.settings.Datasets.GraduationSince25
	}
	return c.settings.Datasets.Graduation
}

// GraduationRates fetches cohort graduation rates for one organization.
//
// # Description
//
//	Rates normalize to 0-100: the dataset stores decimals (0.85) for
//	most rows but whole percentages for some, so values at or below 1
//	scale by 100. Suppression uses the graduation dataset's sentinel
//	convention — the marker must contain "N<10", non-empty alone is
//	not enough (see IsSmallCohortSuppressed).
func (c *Client) GraduationRates(ctx context.Context, orgID, orgLevel, schoolYear, studentGroup string) []GraduationRecord {
	if orgLevel == "" {
		orgLevel = LevelDistrict
	}
	if studentGroup == "" {
		studentGroup = AllStudents
	}

	var records []GraduationRecord
	err := c.cache.Do(ctx, "ospi.graduation", []any{orgID, orgLevel, schoolYear, studentGroup}, &records, c.settings.CacheTTL,
		func(ctx context.Context) (any, error) {
			rows, err := c.queryRows(ctx, c.graduationDatasetFor(schoolYear), QueryOptions{
				Where: soqlAnd(
					soqlEq(orgIDField(orgLevel), orgID),
					soqlEq("organizationlevel", orgLevel),
					soqlEq("schoolyear", schoolYear),
					soqlEq("studentgroup", studentGroup),
				),
				Limit: 500,
			})
			if err != nil {
				return nil, err
			}
			return graduationsFromRows(rows, orgID, schoolYear, studentGroup), nil
		})
	if err != nil {
		c.logger.Warn("graduation fetch failed", "org", orgID, "year", schoolYear, "error", err)
		return nil
	}
	return records
}

// GraduationTrend returns the four-year cohort rate per school year
// over an inclusive range, skipping unavailable years.
func (c *Client) GraduationTrend(ctx context.Context, orgID, orgLevel, startYear, endYear string) map[string]float64 {
	trend := make(map[string]float64)
	for _, year := range SchoolYearRange(startYear, endYear) {
		for _, r := range c.GraduationRates(ctx, orgID, orgLevel, year, AllStudents) {
			if r.Cohort == CohortFourYear && r.GraduationRate != nil {
				trend[year] = *r.GraduationRate
				break
			}
		}
	}
	return trend
}

// graduationsFromRows normalizes raw graduation rows.
func graduationsFromRows(rows []Row, orgID, schoolYear, studentGroup string) []GraduationRecord {
	records := make([]GraduationRecord, 0, len(rows))
	for _, r := range rows {
		rate := ToFloat(r["graduationrate"])
		if rate != nil && *rate <= 1 {
			scaled := *rate * 100
			rate = &scaled
		}

		name := r.Str("districtname")
		if name == "" {
			name = r.Str("schoolname")
		}

		records = append(records, GraduationRecord{
			OrganizationID:   orgID,
			OrganizationName: name,
			SchoolYear:       stringOr(r.Str("schoolyear"), schoolYear),
			StudentGroup:     stringOr(r.Str("studentgroup"), studentGroup),
			Cohort:           r.Str("cohort"),
			GraduationRate:   rate,
			IsSuppressed:     IsSmallCohortSuppressed(r.Str("dat")),
		})
	}
	return records
}
