// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import "context"

// demographicBucket maps an enrollment-dataset field to its display
// group. Slices keep the output order deterministic.
type demographicBucket struct {
	group string
	field string
}

var (
	raceBuckets = []demographicBucket{
		{"American Indian/Alaskan Native", "american_indian_alaskan_native"},
		{"Asian", "asian"},
		{"Black/African American", "black_african_american"},
		{"Hispanic/Latino", "hispanic_latino_of_any_race"},
		{"Native Hawaiian/Pacific Islander", "native_hawaiian_other_pacific"},
		{"Two or More Races", "two_or_more_races"},
		{"White", "white"},
	}
	programBuckets = []demographicBucket{
		{"Students with Disabilities", "students_with_disabilities"},
		{"English Language Learners", "english_language_learners"},
		{"Low-Income", "low_income"},
		{"Homeless", "homeless"},
		{"Foster Care", "foster_care"},
		{"Migrant", "migrant"},
	}
	genderBuckets = []demographicBucket{
		{"Female", "female"},
		{"Male", "male"},
		{"Gender X", "gender_x"},
	}
)

// Demographics fetches enrollment demographics for one organization.
//
// # Description
//
//	Reads the all-grades aggregate enrollment row and expands it into
//	one record per race/ethnicity, program, and gender bucket present.
//	PercentOfTotal is nil whenever total enrollment is zero, missing,
//	or non-numeric; the division-by-zero class of bug lives here.
//
//	Enrollment data releases ahead of assessment data, so callers
//	typically pass a year one ahead of the assessment year.
func (c *Client) Demographics(ctx context.Context, orgID, orgLevel, schoolYear string) []DemographicRecord {
	if orgLevel == "" {
		orgLevel = LevelDistrict
	}

	var records []DemographicRecord
	err := c.cache.Do(ctx, "ospi.demographics", []any{orgID, orgLevel, schoolYear}, &records, c.settings.CacheTTL,
		func(ctx context.Context) (any, error) {
			rows, err := c.queryRows(ctx, c.settings.Datasets.Enrollment, QueryOptions{
				Where: soqlAnd(
					soqlEq(orgIDField(orgLevel), orgID),
					soqlEq("organizationlevel", orgLevel),
					soqlEq("schoolyear", schoolYear),
					soqlEq("gradelevel", AllGrades),
				),
				Limit: 10,
			})
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				return []DemographicRecord{}, nil
			}
			return demographicsFromRow(rows[0], orgID, schoolYear), nil
		})
	if err != nil {
		c.logger.Warn("demographics fetch failed", "org", orgID, "year", schoolYear, "error", err)
		return nil
	}
	return records
}

// demographicsFromRow expands one aggregate enrollment row.
func demographicsFromRow(r Row, orgID, schoolYear string) []DemographicRecord {
	name := r.Str("districtname")
	if name == "" {
		name = r.Str("schoolname")
	}
	total := ToInt(r["all_students"])

	expand := func(buckets []demographicBucket, groupType string) []DemographicRecord {
		records := make([]DemographicRecord, 0, len(buckets))
		for _, b := range buckets {
			count := ToInt(r[b.field])
			if count == nil {
				continue
			}
			records = append(records, DemographicRecord{
				OrganizationID:   orgID,
				OrganizationName: name,
				SchoolYear:       schoolYear,
				StudentGroup:     b.group,
				StudentGroupType: groupType,
				Headcount:        *count,
				PercentOfTotal:   percentOf(*count, total),
			})
		}
		return records
	}

	var records []DemographicRecord
	records = append(records, expand(raceBuckets, GroupTypeRace)...)
	records = append(records, expand(programBuckets, GroupTypeProgram)...)
	records = append(records, expand(genderBuckets, GroupTypeGender)...)
	return records
}
