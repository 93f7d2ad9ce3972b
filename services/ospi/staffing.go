// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import "context"

// Staffing fetches teacher workforce data for one organization.
//
// # Description
//
//	The staffing dataset keys district-level rows by "leacode" under
//	organization level "LEA" — the LEA code equals the district code,
//	they are the same entity under two field names, and the mapping
//	happens here so callers always pass LevelDistrict. The masters
//	percentage normalizes from a decimal when at or below 1.
//
//	The student-teacher ratio is derived from enrollment (fetched
//	from the enrollment dataset) divided by teacher count, rounded to
//	one decimal; it is nil when the teacher count is zero or missing.
//
//	Staffing data releases ahead of assessment data, like enrollment.
func (c *Client) Staffing(ctx context.Context, orgID, orgLevel, schoolYear string) []StaffingRecord {
	if orgLevel == "" {
		orgLevel = LevelDistrict
	}

	idField, datasetLevel := "leacode", "LEA"
	if orgLevel == LevelSchool {
		idField, datasetLevel = "schoolcode", LevelSchool
	}

	var records []StaffingRecord
	err := c.cache.Do(ctx, "ospi.staffing", []any{orgID, orgLevel, schoolYear}, &records, c.settings.CacheTTL,
		func(ctx context.Context) (any, error) {
			rows, err := c.queryRows(ctx, c.settings.Datasets.Teachers, QueryOptions{
				Where: soqlAnd(
					soqlEq(idField, orgID),
					soqlEq("organizationlevel", datasetLevel),
					soqlEq("schoolyear", schoolYear),
					soqlEq("demographiccategory", "All"),
				),
				Limit: 10,
			})
			if err != nil {
				return nil, err
			}

			built := make([]StaffingRecord, 0, len(rows))
			for _, r := range rows {
				record := staffingFromRow(r, orgID, schoolYear)
				if record.TeacherCount != nil && *record.TeacherCount > 0 {
					record.StudentTeacherRatio = c.studentTeacherRatio(ctx, orgID, orgLevel, schoolYear, *record.TeacherCount)
				}
				built = append(built, record)
			}
			return built, nil
		})
	if err != nil {
		c.logger.Warn("staffing fetch failed", "org", orgID, "year", schoolYear, "error", err)
		return nil
	}
	return records
}

// studentTeacherRatio looks up enrollment and derives the ratio.
//
// Returns nil when enrollment is unavailable; a missing ratio is a
// normal sparse-data state, so lookup errors only log.
func (c *Client) studentTeacherRatio(ctx context.Context, orgID, orgLevel, schoolYear string, teacherCount int) *float64 {
	rows, err := c.queryRows(ctx, c.settings.Datasets.Enrollment, QueryOptions{
		Select: "all_students",
		Where: soqlAnd(
			soqlEq(orgIDField(orgLevel), orgID),
			soqlEq("organizationlevel", orgLevel),
			soqlEq("schoolyear", schoolYear),
			soqlEq("gradelevel", AllGrades),
		),
		Limit: 1,
	})
	if err != nil {
		c.logger.Warn("enrollment lookup for ratio failed", "org", orgID, "error", err)
		return nil
	}
	if len(rows) == 0 {
		return nil
	}

	enrollment := ToInt(rows[0]["all_students"])
	if enrollment == nil || *enrollment <= 0 {
		return nil
	}
	ratio := round1(float64(*enrollment) / float64(teacherCount))
	return &ratio
}

// staffingFromRow normalizes one raw staffing row.
func staffingFromRow(r Row, orgID, schoolYear string) StaffingRecord {
	masters := ToFloat(r["ma_percent"])
	if masters != nil && *masters <= 1 {
		scaled := *masters * 100
		masters = &scaled
	}

	name := r.Str("leaname")
	if name == "" {
		name = r.Str("schoolname")
	}
	if name == "" {
		name = r.Str("organizationname")
	}

	return StaffingRecord{
		OrganizationID:     orgID,
		OrganizationName:   name,
		SchoolYear:         stringOr(r.Str("schoolyear"), schoolYear),
		TeacherCount:       ToInt(r["teachercount"]),
		AvgYearsExperience: ToFloat(r["avgyearsexperience"]),
		PercentWithMasters: masters,
	}
}
