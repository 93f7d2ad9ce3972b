// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package combined

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/schoolscope/services/ospi"
)

// metricMap is per-entity metric values keyed by entity code.
type metricMap map[string]map[string]float64

// set records a value into a metricMap, creating the entity on first
// touch and dropping nils.
func (m metricMap) set(code, key string, value *float64) {
	if code == "" || value == nil {
		return
	}
	if m[code] == nil {
		m[code] = make(map[string]float64)
	}
	m[code][key] = *value
}

// buildDistrictDataset assembles the district comparison table.
func (s *Service) buildDistrictDataset(ctx context.Context) (*Dataset, error) {
	spending := s.client.Finance().LatestSpending()
	ds := &Dataset{Level: LevelDistrict, SchoolYear: s.settings.BulkYear}
	if len(spending) == 0 {
		s.logger.Warn("no spending rows loaded, district dataset empty")
		return ds, nil
	}

	var (
		assessment, demographics, staffing metricMap
		graduation                         map[string]float64
		errs                               [4]error
	)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.settings.BulkWorkers)
	group.Go(func() error { assessment, errs[0] = s.districtAssessment(gctx); return nil })
	group.Go(func() error { graduation, errs[1] = s.districtGraduation(gctx); return nil })
	group.Go(func() error { demographics, errs[2] = s.districtDemographics(gctx); return nil })
	group.Go(func() error { staffing, errs[3] = s.districtStaffing(gctx); return nil })
	_ = group.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			s.logger.Warn("district source load failed", "error", err)
		}
	}
	if failed == len(errs) {
		return nil, fmt.Errorf("all district sources failed: %w", errs[0])
	}

	categoryPercents := s.client.Finance().CategoryPercents()

	for _, rec := range spending {
		row := Row{
			Code:    rec.DistrictCode,
			Name:    rec.DistrictName,
			Metrics: make(map[string]float64),
		}
		row.SetMetric("per_pupil_expenditure", rec.PerPupilExpenditure)
		row.SetMetric("total_expenditure", rec.TotalExpenditure)
		if rec.Enrollment != nil {
			row.Metrics["enrollment"] = float64(*rec.Enrollment)
		}

		mergeMetrics(row, assessment[rec.DistrictCode])
		mergeMetrics(row, demographics[rec.DistrictCode])
		mergeMetrics(row, staffing[rec.DistrictCode])
		if rate, ok := graduation[rec.DistrictCode]; ok {
			row.Metrics["graduation_rate"] = rate
		}
		for category, pct := range categoryPercents[rec.DistrictCode] {
			if key, ok := spendingCategoryKeys[category]; ok {
				row.Metrics[key] = pct
			}
		}
		deriveStudentTeacherRatio(row)

		ds.Rows = append(ds.Rows, row)
	}

	ds.SortByName()
	return ds, nil
}

// districtAssessment loads the all-students proficiency pivot: one
// metric per subject per district, first row wins on duplicates.
func (s *Service) districtAssessment(ctx context.Context) (metricMap, error) {
	where := fmt.Sprintf(
		"organizationlevel='District' AND schoolyear='%s' AND gradelevel='All Grades'"+
			" AND studentgroup='All Students'"+
			" AND (testadministration='SBAC' OR testadministration='WCAS')",
		s.settings.BulkYear)

	rows, err := s.client.RawQuery(ctx, s.assessmentDataset(s.settings.BulkYear), ospi.QueryOptions{
		Select: "districtcode, testsubject, percentmetstandard, percentlevel3, percentlevel4",
		Where:  where,
		Limit:  2000,
	})
	if err != nil {
		return nil, fmt.Errorf("district assessment: %w", err)
	}

	pivot := make(metricMap)
	for _, r := range rows {
		key, ok := subjectMetricKeys[r.Str("testsubject")]
		if !ok {
			continue
		}
		code := r.Str("districtcode")
		if _, dup := pivot[code][key]; dup {
			continue
		}
		pivot.set(code, key, proficiencyOf(r))
	}
	return pivot, nil
}

// districtGraduation loads four-year cohort rates, falling back to the
// prior-generation dataset when the bulk year has not published yet.
func (s *Service) districtGraduation(ctx context.Context) (map[string]float64, error) {
	rates, err := s.graduationRates(ctx, s.settings.BulkYear)
	if err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return s.graduationRates(ctx, s.settings.DefaultYear)
	}
	return rates, nil
}

func (s *Service) graduationRates(ctx context.Context, schoolYear string) (map[string]float64, error) {
	where := fmt.Sprintf(
		"organizationlevel='District' AND schoolyear='%s'"+
			" AND studentgroup='All Students' AND cohort='Four Year'",
		schoolYear)

	rows, err := s.client.RawQuery(ctx, s.graduationDataset(schoolYear), ospi.QueryOptions{
		Select: "districtcode, graduationrate",
		Where:  where,
		Limit:  500,
	})
	if err != nil {
		return nil, fmt.Errorf("district graduation %s: %w", schoolYear, err)
	}

	rates := make(map[string]float64, len(rows))
	for _, r := range rows {
		code := r.Str("districtcode")
		rate := ospi.ToFloat(r["graduationrate"])
		if code == "" || rate == nil {
			continue
		}
		v := *rate
		if v <= 1 {
			v *= 100
		}
		rates[code] = v
	}
	return rates, nil
}

// districtDemographics loads program-population shares per district.
func (s *Service) districtDemographics(ctx context.Context) (metricMap, error) {
	where := fmt.Sprintf(
		"organizationlevel='District' AND schoolyear='%s' AND gradelevel='All Grades'",
		s.settings.BulkYear)

	rows, err := s.client.RawQuery(ctx, s.settings.Datasets.Enrollment, ospi.QueryOptions{
		Select: "districtcode, all_students, low_income, english_language_learners, students_with_disabilities",
		Where:  where,
		Limit:  500,
	})
	if err != nil {
		return nil, fmt.Errorf("district demographics: %w", err)
	}

	demographics := make(metricMap)
	for _, r := range rows {
		code := r.Str("districtcode")
		total := ospi.ToFloat(r["all_students"])
		if code == "" || total == nil || *total <= 0 {
			continue
		}
		demographics.set(code, "pct_low_income", shareOf(r["low_income"], *total))
		demographics.set(code, "pct_ell", shareOf(r["english_language_learners"], *total))
		demographics.set(code, "pct_sped", shareOf(r["students_with_disabilities"], *total))
	}
	return demographics, nil
}

// districtStaffing loads the LEA-grain workforce metrics.
func (s *Service) districtStaffing(ctx context.Context) (metricMap, error) {
	where := fmt.Sprintf(
		"organizationlevel='LEA' AND schoolyear='%s' AND demographiccategory='All'",
		s.settings.BulkYear)

	rows, err := s.client.RawQuery(ctx, s.settings.Datasets.Teachers, ospi.QueryOptions{
		Select: "leacode, teachercount, avgyearsexperience, ma_percent",
		Where:  where,
		Limit:  500,
	})
	if err != nil {
		return nil, fmt.Errorf("district staffing: %w", err)
	}

	staffing := make(metricMap)
	for _, r := range rows {
		code := r.Str("leacode")
		staffing.set(code, "teacher_count", ospi.ToFloat(r["teachercount"]))
		staffing.set(code, "teacher_experience", ospi.ToFloat(r["avgyearsexperience"]))
		staffing.set(code, "pct_teachers_masters", percentScaled(r["ma_percent"]))
	}
	return staffing, nil
}

// mergeMetrics copies a source's metrics into a row.
func mergeMetrics(row Row, metrics map[string]float64) {
	for key, value := range metrics {
		row.Metrics[key] = value
	}
}

// deriveStudentTeacherRatio fills the post-merge ratio when both of
// its inputs landed.
func deriveStudentTeacherRatio(row Row) {
	enrollment, okE := row.Metrics["enrollment"]
	teachers, okT := row.Metrics["teacher_count"]
	if !okE || !okT || teachers <= 0 {
		return
	}
	row.Metrics["student_teacher_ratio"] = round1(enrollment / teachers)
}

// proficiencyOf extracts a row's met-standard percentage, preferring
// the pre-combined field over the level 3 + level 4 sum.
func proficiencyOf(r ospi.Row) *float64 {
	if p := ospi.ToPercent(r["percentmetstandard"]); p != nil {
		return p
	}
	l3 := ospi.ToPercent(r["percentlevel3"])
	l4 := ospi.ToPercent(r["percentlevel4"])
	if l3 == nil || l4 == nil {
		return nil
	}
	combined := *l3 + *l4
	return &combined
}

// shareOf renders count/total as a percentage rounded to one decimal.
func shareOf(count any, total float64) *float64 {
	c := ospi.ToFloat(count)
	if c == nil || total <= 0 {
		return nil
	}
	pct := round1(*c / total * 100)
	return &pct
}

// percentScaled normalizes a share that may arrive as a decimal.
func percentScaled(value any) *float64 {
	v := ospi.ToFloat(value)
	if v == nil {
		return nil
	}
	if *v <= 1 {
		scaled := *v * 100
		return &scaled
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
