// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package combined

import "fmt"

// Metric describes one comparable column in a combined dataset.
type Metric struct {
	Key      string
	Label    string
	Category string
	Format   string // fmt verb for display rendering
}

// Metric categories.
const (
	CategoryFinance      = "Finance"
	CategoryAcademics    = "Academics"
	CategoryDemographics = "Demographics"
	CategoryStaffing     = "Staffing"
	CategorySpendingMix  = "Spending Mix"
)

// DistrictMetrics is the comparable-column registry for district
// datasets, in display order.
var DistrictMetrics = []Metric{
	{"per_pupil_expenditure", "Per-Pupil Expenditure", CategoryFinance, "$%.0f"},
	{"total_expenditure", "Total Expenditure", CategoryFinance, "$%.0f"},
	{"enrollment", "Enrollment", CategoryDemographics, "%.0f"},
	{"ela_proficiency", "ELA Proficiency", CategoryAcademics, "%.1f%%"},
	{"math_proficiency", "Math Proficiency", CategoryAcademics, "%.1f%%"},
	{"science_proficiency", "Science Proficiency", CategoryAcademics, "%.1f%%"},
	{"graduation_rate", "Graduation Rate", CategoryAcademics, "%.1f%%"},
	{"pct_low_income", "Low-Income Students", CategoryDemographics, "%.1f%%"},
	{"pct_ell", "English Language Learners", CategoryDemographics, "%.1f%%"},
	{"pct_sped", "Students with Disabilities", CategoryDemographics, "%.1f%%"},
	{"teacher_count", "Teacher Count", CategoryStaffing, "%.0f"},
	{"teacher_experience", "Avg Teacher Experience", CategoryStaffing, "%.1f yrs"},
	{"pct_teachers_masters", "Teachers with Masters", CategoryStaffing, "%.1f%%"},
	{"student_teacher_ratio", "Student-Teacher Ratio", CategoryStaffing, "%.1f"},
	{"pct_spending_basic_ed", "Basic Education Spending", CategorySpendingMix, "%.1f%%"},
	{"pct_spending_sped", "Special Education Spending", CategorySpendingMix, "%.1f%%"},
	{"pct_spending_cte", "Vocational/CTE Spending", CategorySpendingMix, "%.1f%%"},
	{"pct_spending_compensatory", "Compensatory Education Spending", CategorySpendingMix, "%.1f%%"},
	{"pct_spending_support", "Districtwide Support Spending", CategorySpendingMix, "%.1f%%"},
	{"pct_spending_transportation", "Transportation Spending", CategorySpendingMix, "%.1f%%"},
	{"pct_spending_food", "Food Services Spending", CategorySpendingMix, "%.1f%%"},
}

// SchoolMetrics is the registry for school datasets. No finance or
// graduation columns: those sources report at district grain only.
var SchoolMetrics = []Metric{
	{"enrollment", "Enrollment", CategoryDemographics, "%.0f"},
	{"ela_proficiency", "ELA Proficiency", CategoryAcademics, "%.1f%%"},
	{"math_proficiency", "Math Proficiency", CategoryAcademics, "%.1f%%"},
	{"science_proficiency", "Science Proficiency", CategoryAcademics, "%.1f%%"},
	{"pct_low_income", "Low-Income Students", CategoryDemographics, "%.1f%%"},
	{"pct_ell", "English Language Learners", CategoryDemographics, "%.1f%%"},
	{"pct_sped", "Students with Disabilities", CategoryDemographics, "%.1f%%"},
	{"teacher_experience", "Avg Teacher Experience", CategoryStaffing, "%.1f yrs"},
	{"pct_teachers_masters", "Teachers with Masters", CategoryStaffing, "%.1f%%"},
	{"student_teacher_ratio", "Student-Teacher Ratio", CategoryStaffing, "%.1f"},
}

// spendingCategoryKeys maps F-196 program categories to their metric
// keys. Categories outside this map are not comparable columns.
var spendingCategoryKeys = map[string]string{
	"Basic Education":        "pct_spending_basic_ed",
	"Special Education":      "pct_spending_sped",
	"Vocational/CTE":         "pct_spending_cte",
	"Compensatory Education": "pct_spending_compensatory",
	"Districtwide Support":   "pct_spending_support",
	"Transportation":         "pct_spending_transportation",
	"Food Services":          "pct_spending_food",
}

// MetricByKey finds a metric in a registry, nil when unknown.
func MetricByKey(registry []Metric, key string) *Metric {
	for i := range registry {
		if registry[i].Key == key {
			return &registry[i]
		}
	}
	return nil
}

// MetricLabel returns the display label for a key, or the key itself
// when it is not in the registry.
func MetricLabel(registry []Metric, key string) string {
	if m := MetricByKey(registry, key); m != nil {
		return m.Label
	}
	return key
}

// FormatMetricValue renders a metric value for display; a nil value
// renders as "N/A".
func FormatMetricValue(registry []Metric, key string, value *float64) string {
	if value == nil {
		return "N/A"
	}
	if m := MetricByKey(registry, key); m != nil {
		return fmt.Sprintf(m.Format, *value)
	}
	return fmt.Sprintf("%.1f", *value)
}
