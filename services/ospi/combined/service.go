// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package combined

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/AleutianAI/schoolscope/services/ospi"
	"github.com/AleutianAI/schoolscope/services/ospi/config"
)

// Service builds the state-wide combined datasets.
//
// Builds are expensive (several bulk queries plus the paginated school
// loads), so results memoize through the client's cache under the
// "combined.*" operations; Warm can run them ahead of first use.
type Service struct {
	client   *ospi.Client
	settings config.Settings
	logger   *slog.Logger
}

// NewService wires a combined-dataset builder over an ospi client.
func NewService(client *ospi.Client, settings config.Settings, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, settings: settings, logger: logger}
}

// AllDistrictData builds the district comparison dataset for the bulk
// school year.
//
// # Description
//
//	The F-196 spending table is the base source: its latest-year rows
//	define the district population, and the remote sources left-join
//	onto it by district code. A district absent from a remote source
//	keeps its row with those metrics missing. The build fails (and is
//	not cached) only when every remote source errors out.
func (s *Service) AllDistrictData(ctx context.Context) *Dataset {
	var ds Dataset
	err := s.client.Cache().Do(ctx, "combined.districts", []any{s.settings.BulkYear}, &ds, s.settings.CacheTTL,
		func(ctx context.Context) (any, error) {
			return s.buildDistrictDataset(ctx)
		})
	if err != nil {
		s.logger.Warn("district dataset build failed", "error", err)
		return &Dataset{Level: LevelDistrict, SchoolYear: s.settings.BulkYear}
	}
	return &ds
}

// AllSchoolData builds the school comparison dataset for the bulk
// school year. The assessment rows are the base source here: schools
// have no district-grain finance table to anchor on.
func (s *Service) AllSchoolData(ctx context.Context) *Dataset {
	var ds Dataset
	err := s.client.Cache().Do(ctx, "combined.schools", []any{s.settings.BulkYear}, &ds, s.settings.CacheTTL,
		func(ctx context.Context) (any, error) {
			return s.buildSchoolDataset(ctx)
		})
	if err != nil {
		s.logger.Warn("school dataset build failed", "error", err)
		return &Dataset{Level: LevelSchool, SchoolYear: s.settings.BulkYear}
	}
	return &ds
}

// Warm pre-builds both datasets, typically from a background goroutine
// at startup. Failures only log; the next request retries.
func (s *Service) Warm(ctx context.Context) {
	districts := s.AllDistrictData(ctx)
	schools := s.AllSchoolData(ctx)
	s.logger.Info("combined datasets warmed",
		"districts", len(districts.Rows), "schools", len(schools.Rows))
}

// assessmentDataset picks the dataset generation covering a year.
func (s *Service) assessmentDataset(schoolYear string) string {
	if startYear(schoolYear) >= 2024 {
		return s.settings.Datasets.AssessmentSince25
	}
	return s.settings.Datasets.Assessment
}

// graduationDataset picks the dataset generation covering a year.
func (s *Service) graduationDataset(schoolYear string) string {
	if startYear(schoolYear) >= 2024 {
		return s.settings.Datasets.GraduationSince25
	}
	return s.settings.Datasets.Graduation
}

// startYear parses the leading four-digit year, 0 on malformed input.
func startYear(schoolYear string) int {
	if len(schoolYear) < 4 {
		return 0
	}
	y, err := strconv.Atoi(schoolYear[:4])
	if err != nil {
		return 0
	}
	return y
}

// subjectMetricKeys maps assessment subjects (both naming generations)
// to their proficiency metric keys.
var subjectMetricKeys = map[string]string{
	"ELA":                   "ela_proficiency",
	"English Language Arts": "ela_proficiency",
	"Math":                  "math_proficiency",
	"Mathematics":           "math_proficiency",
	"Science":               "science_proficiency",
}
