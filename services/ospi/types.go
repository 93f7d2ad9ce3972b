// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

// Organization levels used across the datasets.
//
// The staffing dataset calls district-level rows "LEA"; the mapping is
// handled inside Staffing so callers always pass LevelDistrict.
const (
	LevelSchool   = "School"
	LevelDistrict = "District"
)

// School identifies one school and its parent district.
type School struct {
	SchoolCode   string `json:"school_code"`
	SchoolName   string `json:"school_name"`
	DistrictCode string `json:"district_code"`
	DistrictName string `json:"district_name"`
	County       string `json:"county"`
	ESDName      string `json:"esd_name"`
}

// District identifies one school district.
type District struct {
	DistrictCode string `json:"district_code"`
	DistrictName string `json:"district_name"`
	County       string `json:"county"`
	ESDName      string `json:"esd_name"`
}

// AssessmentRecord is one organization's result for a single
// (school year, subject, grade level, student group) tuple.
//
// Percentages are normalized to the 0-100 range at ingestion. The
// proficiency rate prefers a source-supplied met-standard percentage
// and otherwise derives level 3 + level 4; it is nil when neither is
// available (typically a suppressed row).
type AssessmentRecord struct {
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	SchoolYear       string `json:"school_year"`
	TestSubject      string `json:"test_subject"`
	GradeLevel       string `json:"grade_level"`
	StudentGroup     string `json:"student_group"`
	StudentGroupType string `json:"student_group_type"`

	CountExpected    *int     `json:"count_expected"`
	CountMetStandard *int     `json:"count_met_standard"`
	ProficiencyRate  *float64 `json:"proficiency_rate"`
	PercentLevel1    *float64 `json:"percent_level_1"`
	PercentLevel2    *float64 `json:"percent_level_2"`
	PercentLevel3    *float64 `json:"percent_level_3"`
	PercentLevel4    *float64 `json:"percent_level_4"`

	IsSuppressed      bool   `json:"is_suppressed"`
	SuppressionReason string `json:"suppression_reason,omitempty"`
}

// AssessmentSummaryRow is the per-subject digest used by profile views.
type AssessmentSummaryRow struct {
	Organization    string   `json:"organization"`
	Subject         string   `json:"subject"`
	ProficiencyRate *float64 `json:"proficiency_rate"`
	PercentLevel1   *float64 `json:"percent_level_1"`
	PercentLevel2   *float64 `json:"percent_level_2"`
	PercentLevel3   *float64 `json:"percent_level_3"`
	PercentLevel4   *float64 `json:"percent_level_4"`
	StudentsTested  *int     `json:"students_tested"`
	Suppressed      bool     `json:"suppressed"`
}

// Demographic group types.
const (
	GroupTypeRace    = "Race/Ethnicity"
	GroupTypeProgram = "Program"
	GroupTypeGender  = "Gender"
)

// DemographicRecord is one enrollment bucket for an organization.
//
// PercentOfTotal is nil, never zero or infinite, when total enrollment
// is zero, missing, or non-numeric.
type DemographicRecord struct {
	OrganizationID   string   `json:"organization_id"`
	OrganizationName string   `json:"organization_name"`
	SchoolYear       string   `json:"school_year"`
	StudentGroup     string   `json:"student_group"`
	StudentGroupType string   `json:"student_group_type"`
	Headcount        int      `json:"headcount"`
	PercentOfTotal   *float64 `json:"percent_of_total"`
	IsSuppressed     bool     `json:"is_suppressed"`
}

// GraduationRecord is one cohort graduation rate for an organization.
type GraduationRecord struct {
	OrganizationID   string   `json:"organization_id"`
	OrganizationName string   `json:"organization_name"`
	SchoolYear       string   `json:"school_year"`
	StudentGroup     string   `json:"student_group"`
	Cohort           string   `json:"cohort"`
	GraduationRate   *float64 `json:"graduation_rate"`
	IsSuppressed     bool     `json:"is_suppressed"`
}

// StaffingRecord is one organization's teacher workforce summary.
//
// StudentTeacherRatio is derived from enrollment and teacher count and
// is nil when the teacher count is zero or missing.
type StaffingRecord struct {
	OrganizationID      string   `json:"organization_id"`
	OrganizationName    string   `json:"organization_name"`
	SchoolYear          string   `json:"school_year"`
	TeacherCount        *int     `json:"teacher_count"`
	AvgYearsExperience  *float64 `json:"avg_years_experience"`
	PercentWithMasters  *float64 `json:"percent_with_masters"`
	StudentTeacherRatio *float64 `json:"student_teacher_ratio"`
}
