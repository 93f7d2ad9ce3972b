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

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/schoolscope/services/ospi"
)

// School-grain loads page through a few thousand rows per source.
const (
	schoolBatchSize = 5000
	schoolMaxTotal  = 50000
)

// schoolIdentity carries the school name alongside its metrics during
// the merge; assessment rows anchor the population.
type schoolIdentity struct {
	name    string
	metrics map[string]float64
}

// buildSchoolDataset assembles the school comparison table. The
// assessment rows define the school population; demographics and
// staffing left-join onto it.
func (s *Service) buildSchoolDataset(ctx context.Context) (*Dataset, error) {
	var (
		base                   map[string]schoolIdentity
		demographics, staffing metricMap
		enrollment             map[string]float64
		errs                   [3]error
	)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(s.settings.BulkWorkers)
	group.Go(func() error { base, errs[0] = s.schoolAssessment(gctx); return nil })
	group.Go(func() error { demographics, enrollment, errs[1] = s.schoolDemographics(gctx); return nil })
	group.Go(func() error { staffing, errs[2] = s.schoolStaffing(gctx); return nil })
	_ = group.Wait()

	for _, err := range errs {
		if err != nil {
			s.logger.Warn("school source load failed", "error", err)
		}
	}
	if errs[0] != nil {
		return nil, fmt.Errorf("school base source failed: %w", errs[0])
	}

	ds := &Dataset{Level: LevelSchool, SchoolYear: s.settings.BulkYear}
	for code, identity := range base {
		row := Row{Code: code, Name: identity.name, Metrics: identity.metrics}
		if e, ok := enrollment[code]; ok {
			row.Metrics["enrollment"] = e
		}
		mergeMetrics(row, demographics[code])
		mergeMetrics(row, staffing[code])
		deriveStudentTeacherRatio(row)
		ds.Rows = append(ds.Rows, row)
	}

	ds.SortByName()
	return ds, nil
}

// schoolAssessment pages through the all-students assessment rows and
// pivots subjects into proficiency metrics, first row wins.
func (s *Service) schoolAssessment(ctx context.Context) (map[string]schoolIdentity, error) {
	where := fmt.Sprintf(
		"organizationlevel='School' AND schoolyear='%s' AND gradelevel='All Grades'"+
			" AND studentgroup='All Students'"+
			" AND (testadministration='SBAC' OR testadministration='WCAS')",
		s.settings.BulkYear)

	rows, err := s.client.RawPaginatedQuery(ctx, s.assessmentDataset(s.settings.BulkYear),
		schoolBatchSize, schoolMaxTotal, ospi.QueryOptions{
			Select: "schoolcode, schoolname, testsubject, percentmetstandard, percentlevel3, percentlevel4",
			Where:  where,
		})
	if err != nil {
		return nil, fmt.Errorf("school assessment: %w", err)
	}

	base := make(map[string]schoolIdentity)
	for _, r := range rows {
		code := r.Str("schoolcode")
		if code == "" {
			continue
		}
		identity, ok := base[code]
		if !ok {
			identity = schoolIdentity{
				name:    r.Str("schoolname"),
				metrics: make(map[string]float64),
			}
		}
		if key, known := subjectMetricKeys[r.Str("testsubject")]; known {
			if _, dup := identity.metrics[key]; !dup {
				if p := proficiencyOf(r); p != nil {
					identity.metrics[key] = *p
				}
			}
		}
		base[code] = identity
	}
	return base, nil
}

// schoolDemographics pages enrollment rows; returns program shares and
// the raw enrollment counts separately since enrollment is its own
// metric column.
func (s *Service) schoolDemographics(ctx context.Context) (metricMap, map[string]float64, error) {
	where := fmt.Sprintf(
		"organizationlevel='School' AND schoolyear='%s' AND gradelevel='All Grades'",
		s.settings.BulkYear)

	rows, err := s.client.RawPaginatedQuery(ctx, s.settings.Datasets.Enrollment,
		schoolBatchSize, schoolMaxTotal, ospi.QueryOptions{
			Select: "schoolcode, all_students, low_income, english_language_learners, students_with_disabilities",
			Where:  where,
		})
	if err != nil {
		return nil, nil, fmt.Errorf("school demographics: %w", err)
	}

	demographics := make(metricMap)
	enrollment := make(map[string]float64, len(rows))
	for _, r := range rows {
		code := r.Str("schoolcode")
		total := ospi.ToFloat(r["all_students"])
		if code == "" || total == nil || *total <= 0 {
			continue
		}
		enrollment[code] = *total
		demographics.set(code, "pct_low_income", shareOf(r["low_income"], *total))
		demographics.set(code, "pct_ell", shareOf(r["english_language_learners"], *total))
		demographics.set(code, "pct_sped", shareOf(r["students_with_disabilities"], *total))
	}
	return demographics, enrollment, nil
}

// schoolStaffing pages the school-grain workforce rows.
func (s *Service) schoolStaffing(ctx context.Context) (metricMap, error) {
	where := fmt.Sprintf(
		"organizationlevel='School' AND schoolyear='%s' AND demographiccategory='All'",
		s.settings.BulkYear)

	rows, err := s.client.RawPaginatedQuery(ctx, s.settings.Datasets.Teachers,
		schoolBatchSize, schoolMaxTotal, ospi.QueryOptions{
			Select: "schoolcode, teachercount, avgyearsexperience, ma_percent",
			Where:  where,
		})
	if err != nil {
		return nil, fmt.Errorf("school staffing: %w", err)
	}

	staffing := make(metricMap)
	for _, r := range rows {
		code := r.Str("schoolcode")
		staffing.set(code, "teacher_count", ospi.ToFloat(r["teachercount"]))
		staffing.set(code, "teacher_experience", ospi.ToFloat(r["avgyearsexperience"]))
		staffing.set(code, "pct_teachers_masters", percentScaled(r["ma_percent"]))
	}
	return staffing, nil
}
