// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package finance

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"sync"
)

// yearColumn matches per-pupil expenditure year columns. The table
// grows a new column each year, so the available year range is always
// discovered from the headers, never hardcoded.
var yearColumn = regexp.MustCompile(`^per_pupil_(\d{2}-\d{2})$`)

// SpendingRecord is one district's expenditures for one school year.
//
// SchoolYear uses the financial two-digit convention ("24-25").
type SpendingRecord struct {
	DistrictCode        string   `json:"district_code"`
	DistrictName        string   `json:"district_name"`
	SchoolYear          string   `json:"school_year"`
	PerPupilExpenditure *float64 `json:"per_pupil_expenditure"`
	TotalExpenditure    *float64 `json:"total_expenditure"`
	Enrollment          *int     `json:"enrollment"`
}

// SpendingCategory is one program bucket's share of district spending.
type SpendingCategory struct {
	Category string   `json:"category"`
	Amount   float64  `json:"amount"`
	Percent  *float64 `json:"percent"`
}

// Source provides read access to the two F-196 tables.
//
// Tables load lazily on first use and can be reloaded when the files
// change (the CSV watcher calls Reload). Missing files degrade to empty
// tables with a logged warning.
//
// Thread Safety: safe for concurrent use.
type Source struct {
	spendingPath string
	programsPath string
	logger       *slog.Logger

	mu       sync.RWMutex
	loaded   bool
	spending *Table
	programs *Table
}

// NewSource creates a Source over the two table paths.
func NewSource(spendingPath, programsPath string, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		spendingPath: spendingPath,
		programsPath: programsPath,
		logger:       logger,
	}
}

// Reload drops the loaded tables; the next access re-reads the files.
func (s *Source) Reload() {
	s.mu.Lock()
	s.loaded = false
	s.spending = nil
	s.programs = nil
	s.mu.Unlock()
}

// tables returns the loaded tables, reading the files if needed.
func (s *Source) tables() (*Table, *Table) {
	s.mu.RLock()
	if s.loaded {
		spending, programs := s.spending, s.programs
		s.mu.RUnlock()
		return spending, programs
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.spending, s.programs
	}

	spending, err := LoadTable(s.spendingPath)
	if err != nil {
		s.logger.Warn("spending table unavailable", "path", s.spendingPath, "error", err)
		spending = &Table{}
	}
	programs, err := LoadTable(s.programsPath)
	if err != nil {
		s.logger.Warn("program spending table unavailable", "path", s.programsPath, "error", err)
		programs = &Table{}
	}

	s.spending = spending
	s.programs = programs
	s.loaded = true
	return s.spending, s.programs
}

// Years returns the school years present in the spending table,
// sorted ascending. Discovered from the per_pupil_YY-YY headers.
func (s *Source) Years() []string {
	spending, _ := s.tables()

	var years []string
	for _, header := range spending.Headers() {
		if m := yearColumn.FindStringSubmatch(header); m != nil {
			years = append(years, m[1])
		}
	}
	sort.Strings(years)
	return years
}

// LatestYear returns the most recent year in the spending table, or "".
func (s *Source) LatestYear() string {
	years := s.Years()
	if len(years) == 0 {
		return ""
	}
	return years[len(years)-1]
}

// Spending returns one district's record for a short-form school year.
//
// Returns nil when the district is unknown, the year column is absent,
// or the per-pupil cell is empty. Nil is the expected "no data" state,
// not an error.
func (s *Source) Spending(districtCode, shortYear string) *SpendingRecord {
	spending, _ := s.tables()

	row := spending.FindRow("district_code", districtCode)
	if row == nil {
		return nil
	}

	perPupilCell, ok := row["per_pupil_"+shortYear]
	if !ok {
		return nil
	}
	perPupil := parseFloat(perPupilCell)
	if perPupil == nil {
		return nil
	}

	return &SpendingRecord{
		DistrictCode:        districtCode,
		DistrictName:        row["district_name"],
		SchoolYear:          shortYear,
		PerPupilExpenditure: perPupil,
		TotalExpenditure:    parseFloat(row["expenditure_"+shortYear]),
		Enrollment:          parseInt(row["enrollment_"+shortYear]),
	}
}

// Trend returns a district's per-pupil expenditure across every year
// the table covers: short-form year → amount. Years with empty cells
// are skipped; an unknown district yields an empty map.
func (s *Source) Trend(districtCode string) map[string]float64 {
	spending, _ := s.tables()

	trend := make(map[string]float64)
	row := spending.FindRow("district_code", districtCode)
	if row == nil {
		return trend
	}

	for _, year := range s.Years() {
		if amount := parseFloat(row["per_pupil_"+year]); amount != nil {
			trend[year] = *amount
		}
	}
	return trend
}

// Categories returns a district's program spending buckets with
// percent-of-total. Percent is nil when the district total is zero.
func (s *Source) Categories(districtCode string) []SpendingCategory {
	_, programs := s.tables()

	var categories []SpendingCategory
	var total float64
	for _, row := range programs.Rows() {
		if row["district_code"] != districtCode {
			continue
		}
		amount := parseFloat(row["amount"])
		if amount == nil {
			continue
		}
		categories = append(categories, SpendingCategory{
			Category: row["category"],
			Amount:   *amount,
		})
		total += *amount
	}

	if total > 0 {
		for i := range categories {
			pct := math.Round(categories[i].Amount/total*1000) / 10
			categories[i].Percent = &pct
		}
	}
	return categories
}

// LatestSpending returns every district's record at the latest year.
//
// Districts whose per-pupil cell is empty for that year are skipped.
// This is the base table for the district-level bulk dataset; it
// carries the canonical district names.
func (s *Source) LatestSpending() []SpendingRecord {
	spending, _ := s.tables()

	year := s.LatestYear()
	if year == "" {
		if !spending.Empty() {
			s.logger.Warn("no per-pupil year columns found in spending table")
		}
		return nil
	}

	var records []SpendingRecord
	for _, row := range spending.Rows() {
		perPupil := parseFloat(row["per_pupil_"+year])
		if perPupil == nil {
			continue
		}
		records = append(records, SpendingRecord{
			DistrictCode:        row["district_code"],
			DistrictName:        row["district_name"],
			SchoolYear:          year,
			PerPupilExpenditure: perPupil,
			TotalExpenditure:    parseFloat(row["expenditure_"+year]),
			Enrollment:          parseInt(row["enrollment_"+year]),
		})
	}
	return records
}

// CategoryPercents returns district → category → percent-of-total for
// every district in the program table. Districts with a zero total are
// omitted.
func (s *Source) CategoryPercents() map[string]map[string]float64 {
	_, programs := s.tables()

	amounts := make(map[string]map[string]float64)
	totals := make(map[string]float64)
	for _, row := range programs.Rows() {
		code := row["district_code"]
		amount := parseFloat(row["amount"])
		if code == "" || amount == nil {
			continue
		}
		if amounts[code] == nil {
			amounts[code] = make(map[string]float64)
		}
		amounts[code][row["category"]] += *amount
		totals[code] += *amount
	}

	percents := make(map[string]map[string]float64, len(amounts))
	for code, byCategory := range amounts {
		total := totals[code]
		if total <= 0 {
			continue
		}
		percents[code] = make(map[string]float64, len(byCategory))
		for category, amount := range byCategory {
			percents[code][category] = math.Round(amount/total*1000) / 10
		}
	}
	return percents
}
