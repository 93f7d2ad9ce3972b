// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import "context"

// Filter defaults shared by the category fetches.
const (
	AllStudents = "All Students"
	AllGrades   = "All Grades"
)

// AssessmentQuery selects assessment rows for one organization.
//
// Zero-valued fields fall back to defaults: district level, the
// configured default year, all students, all grades, every subject.
type AssessmentQuery struct {
	OrgID        string
	OrgLevel     string
	SchoolYear   string
	TestSubject  string
	StudentGroup string
	GradeLevel   string
}

// withDefaults fills in the unset query fields.
func (q AssessmentQuery) withDefaults(defaultYear string) AssessmentQuery {
	if q.OrgLevel == "" {
		q.OrgLevel = LevelDistrict
	}
	if q.SchoolYear == "" {
		q.SchoolYear = defaultYear
	}
	if q.StudentGroup == "" {
		q.StudentGroup = AllStudents
	}
	if q.GradeLevel == "" {
		q.GradeLevel = AllGrades
	}
	return q
}

// assessmentDatasetFor picks the dataset generation covering a year.
func (c *Client) assessmentDatasetFor(schoolYear string) string {
	if startYearOf(schoolYear) >= 2024 {
		return c.settings.Datasets.AssessmentSince25
	}
	return c.settings.Datasets.Assessment
}

// orgIDField returns the identifier field for an organization level.
func orgIDField(orgLevel string) string {
	if orgLevel == LevelSchool {
		return "schoolcode"
	}
	return "districtcode"
}

// AssessmentResults fetches normalized assessment records for one
// school or district.
//
// # Description
//
//	Only the main assessments are included (SBAC for ELA/Math, WCAS
//	for Science). Percent fields normalize to 0-100. The proficiency
//	rate prefers a source-supplied met-standard percentage; otherwise
//	it is level 3 + level 4, or nil when either is missing (usually a
//	suppressed row).
func (c *Client) AssessmentResults(ctx context.Context, q AssessmentQuery) []AssessmentRecord {
	q = q.withDefaults(c.settings.DefaultYear)

	var records []AssessmentRecord
	err := c.cache.Do(ctx, "ospi.assessment",
		[]any{q.OrgID, q.OrgLevel, q.SchoolYear, q.TestSubject, q.StudentGroup, q.GradeLevel},
		&records, c.settings.CacheTTL,
		func(ctx context.Context) (any, error) {
			where := soqlAnd(
				soqlEq(orgIDField(q.OrgLevel), q.OrgID),
				soqlEq("organizationlevel", q.OrgLevel),
				soqlEq("schoolyear", q.SchoolYear),
				soqlEq("gradelevel", q.GradeLevel),
				soqlOr(soqlEq("testadministration", "SBAC"), soqlEq("testadministration", "WCAS")),
				eqIfSet("testsubject", q.TestSubject),
				eqIfSet("studentgroup", q.StudentGroup),
			)

			rows, err := c.queryRows(ctx, c.assessmentDatasetFor(q.SchoolYear), QueryOptions{
				Where: where,
				Limit: 1000,
			})
			if err != nil {
				return nil, err
			}
			return assessmentsFromRows(rows, q), nil
		})
	if err != nil {
		c.logger.Warn("assessment fetch failed", "org", q.OrgID, "year", q.SchoolYear, "error", err)
		return nil
	}
	return records
}

// AssessmentSummary returns the per-subject all-students digest.
func (c *Client) AssessmentSummary(ctx context.Context, orgID, orgLevel, schoolYear string) []AssessmentSummaryRow {
	records := c.AssessmentResults(ctx, AssessmentQuery{
		OrgID:      orgID,
		OrgLevel:   orgLevel,
		SchoolYear: schoolYear,
	})

	summary := make([]AssessmentSummaryRow, 0, len(records))
	for _, a := range records {
		summary = append(summary, AssessmentSummaryRow{
			Organization:    a.OrganizationName,
			Subject:         a.TestSubject,
			ProficiencyRate: a.ProficiencyRate,
			PercentLevel1:   a.PercentLevel1,
			PercentLevel2:   a.PercentLevel2,
			PercentLevel3:   a.PercentLevel3,
			PercentLevel4:   a.PercentLevel4,
			StudentsTested:  a.CountExpected,
			Suppressed:      a.IsSuppressed,
		})
	}
	return summary
}

// AssessmentTrend returns a subject's proficiency rate per school year
// over an inclusive year range, in chronological order.
//
// Years where the metric is unavailable (no rows, suppressed, source
// down) are skipped; a sparse series is a valid result.
func (c *Client) AssessmentTrend(ctx context.Context, orgID, orgLevel, subject, startYear, endYear string) map[string]float64 {
	trend := make(map[string]float64)
	for _, year := range SchoolYearRange(startYear, endYear) {
		records := c.AssessmentResults(ctx, AssessmentQuery{
			OrgID:       orgID,
			OrgLevel:    orgLevel,
			SchoolYear:  year,
			TestSubject: subject,
		})
		for _, r := range records {
			if r.ProficiencyRate != nil {
				trend[year] = *r.ProficiencyRate
				break
			}
		}
	}
	return trend
}

// eqIfSet builds an equality predicate, or "" when value is empty.
func eqIfSet(field, value string) string {
	if value == "" {
		return ""
	}
	return soqlEq(field, value)
}

// assessmentsFromRows normalizes raw assessment rows.
func assessmentsFromRows(rows []Row, q AssessmentQuery) []AssessmentRecord {
	records := make([]AssessmentRecord, 0, len(rows))
	for _, r := range rows {
		marker := r.Str("dat")
		suppressed := IsSuppressed(marker)

		level1 := ToPercent(r["percentlevel1"])
		level2 := ToPercent(r["percentlevel2"])
		level3 := ToPercent(r["percentlevel3"])
		level4 := ToPercent(r["percentlevel4"])

		// Prefer a pre-combined met-standard percentage when the
		// dataset supplies one; derive from levels otherwise.
		proficiency := ToPercent(r["percentmetstandard"])
		if proficiency == nil && level3 != nil && level4 != nil {
			combined := *level3 + *level4
			proficiency = &combined
		}

		name := r.Str("districtname")
		if name == "" {
			name = r.Str("schoolname")
		}
		reason := ""
		if suppressed {
			reason = marker
		}

		records = append(records, AssessmentRecord{
			OrganizationID:    q.OrgID,
			OrganizationName:  name,
			SchoolYear:        stringOr(r.Str("schoolyear"), q.SchoolYear),
			TestSubject:       r.Str("testsubject"),
			GradeLevel:        stringOr(r.Str("gradelevel"), q.GradeLevel),
			StudentGroup:      stringOr(r.Str("studentgroup"), q.StudentGroup),
			StudentGroupType:  r.Str("studentgrouptype"),
			CountExpected:     ToInt(r["count_of_students_expected"]),
			CountMetStandard:  ToInt(r["count_consistent_grade_level_knowledge_and_above"]),
			ProficiencyRate:   proficiency,
			PercentLevel1:     level1,
			PercentLevel2:     level2,
			PercentLevel3:     level3,
			PercentLevel4:     level4,
			IsSuppressed:      suppressed,
			SuppressionReason: reason,
		})
	}
	return records
}

// stringOr returns value, or fallback when value is empty.
func stringOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
