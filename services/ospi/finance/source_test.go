// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package finance

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spendingCSV = `district_code,district_name,per_pupil_23-24,enrollment_23-24,expenditure_23-24,per_pupil_24-25,enrollment_24-25,expenditure_24-25,per_pupil_25-26,enrollment_25-26,expenditure_25-26
27400,Peninsula School District,12000,8800,105600000,12500,8900,111250000,13000,9000,117000000
17001,Olympia School District,13100,9600,125760000,13600,9500,129200000,,,
34003,Tiny District,,,,,,,,,
`

const programsCSV = `district_code,category,amount
27400,Basic Education,60000000
27400,Special Education,20000000
27400,Transportation,20000000
17001,Basic Education,0
`

func writeSource(t *testing.T) *Source {
	t.Helper()
	dir := t.TempDir()
	spendingPath := filepath.Join(dir, "per_pupil_expenditure.csv")
	programsPath := filepath.Join(dir, "expenditures_by_program.csv")
	require.NoError(t, os.WriteFile(spendingPath, []byte(spendingCSV), 0644))
	require.NoError(t, os.WriteFile(programsPath, []byte(programsCSV), 0644))
	return NewSource(spendingPath, programsPath, nil)
}

func TestSource_YearsDiscoveredFromHeaders(t *testing.T) {
	s := writeSource(t)

	assert.Equal(t, []string{"23-24", "24-25", "25-26"}, s.Years())
	assert.Equal(t, "25-26", s.LatestYear())
}

func TestSource_Spending(t *testing.T) {
	s := writeSource(t)

	rec := s.Spending("27400", "24-25")
	require.NotNil(t, rec)
	assert.Equal(t, "Peninsula School District", rec.DistrictName)
	assert.Equal(t, "24-25", rec.SchoolYear)
	require.NotNil(t, rec.PerPupilExpenditure)
	assert.Equal(t, 12500.0, *rec.PerPupilExpenditure)
	require.NotNil(t, rec.Enrollment)
	assert.Equal(t, 8900, *rec.Enrollment)
	require.NotNil(t, rec.TotalExpenditure)
	assert.Equal(t, 111250000.0, *rec.TotalExpenditure)
}

func TestSource_Spending_NilCases(t *testing.T) {
	s := writeSource(t)

	assert.Nil(t, s.Spending("99999", "24-25"), "unknown district")
	assert.Nil(t, s.Spending("27400", "12-13"), "year column absent")
	assert.Nil(t, s.Spending("17001", "25-26"), "per-pupil cell empty")
	assert.Nil(t, s.Spending("34003", "24-25"), "district with no data")
}

func TestSource_Trend_DynamicYearRange(t *testing.T) {
	s := writeSource(t)

	trend := s.Trend("27400")
	assert.Equal(t, map[string]float64{
		"23-24": 12000.0,
		"24-25": 12500.0,
		"25-26": 13000.0,
	}, trend)

	// Sparse trend: empty cells skipped, not zeroed.
	trend = s.Trend("17001")
	assert.Equal(t, map[string]float64{
		"23-24": 13100.0,
		"24-25": 13600.0,
	}, trend)

	assert.Empty(t, s.Trend("99999"))
}

func TestSource_Categories(t *testing.T) {
	s := writeSource(t)

	categories := s.Categories("27400")
	require.Len(t, categories, 3)
	assert.Equal(t, "Basic Education", categories[0].Category)
	assert.Equal(t, 60000000.0, categories[0].Amount)
	require.NotNil(t, categories[0].Percent)
	assert.Equal(t, 60.0, *categories[0].Percent)
	require.NotNil(t, categories[2].Percent)
	assert.Equal(t, 20.0, *categories[2].Percent)
}

func TestSource_Categories_ZeroTotal(t *testing.T) {
	s := writeSource(t)

	categories := s.Categories("17001")
	require.Len(t, categories, 1)
	assert.Nil(t, categories[0].Percent, "percent undefined when total is zero")
}

func TestSource_LatestSpending(t *testing.T) {
	s := writeSource(t)

	records := s.LatestSpending()
	// Only 27400 has a per-pupil value for the latest year (25-26).
	require.Len(t, records, 1)
	assert.Equal(t, "27400", records[0].DistrictCode)
	assert.Equal(t, "25-26", records[0].SchoolYear)
	assert.Equal(t, 13000.0, *records[0].PerPupilExpenditure)
}

func TestSource_CategoryPercents(t *testing.T) {
	s := writeSource(t)

	percents := s.CategoryPercents()
	require.Contains(t, percents, "27400")
	assert.Equal(t, 60.0, percents["27400"]["Basic Education"])
	assert.Equal(t, 20.0, percents["27400"]["Special Education"])
	assert.NotContains(t, percents, "17001", "zero-total district omitted")
}

func TestSource_MissingFilesFailOpen(t *testing.T) {
	dir := t.TempDir()
	s := NewSource(filepath.Join(dir, "absent.csv"), filepath.Join(dir, "also-absent.csv"), nil)

	assert.Nil(t, s.Spending("27400", "24-25"))
	assert.Empty(t, s.Trend("27400"))
	assert.Empty(t, s.Categories("27400"))
	assert.Empty(t, s.LatestSpending())
	assert.Empty(t, s.Years())
}

func TestSource_Reload(t *testing.T) {
	dir := t.TempDir()
	spendingPath := filepath.Join(dir, "per_pupil_expenditure.csv")
	programsPath := filepath.Join(dir, "expenditures_by_program.csv")
	require.NoError(t, os.WriteFile(spendingPath, []byte(spendingCSV), 0644))
	require.NoError(t, os.WriteFile(programsPath, []byte(programsCSV), 0644))

	s := NewSource(spendingPath, programsPath, nil)
	require.Equal(t, "25-26", s.LatestYear())

	updated := `district_code,district_name,per_pupil_26-27
27400,Peninsula School District,13500
`
	require.NoError(t, os.WriteFile(spendingPath, []byte(updated), 0644))

	// Tables are cached until Reload.
	assert.Equal(t, "25-26", s.LatestYear())
	s.Reload()
	assert.Equal(t, "26-27", s.LatestYear())
}

func TestWatcher_FiresOncePerBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "per_pupil_expenditure.csv")
	require.NoError(t, os.WriteFile(path, []byte("district_code\n"), 0644))

	var fired int32
	w, err := NewWatcher([]string{path}, func() {
		atomic.AddInt32(&fired, 1)
	}, nil)
	require.NoError(t, err)
	w.debounce = 100 * time.Millisecond
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	// A burst of writes inside the debounce window fires once.
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(path, []byte("district_code\nupdated\n"), 0644))
		time.Sleep(20 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, 2*time.Second, 25*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}
