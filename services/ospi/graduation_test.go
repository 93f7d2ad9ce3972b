// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ospi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graduationRow(cohort string, extra Row) Row {
	r := Row{
		"districtcode":      "27400",
		"districtname":      "Peninsula School District",
		"organizationlevel": "District",
		"schoolyear":        "2022-23",
		"studentgroup":      "All Students",
		"cohort":            cohort,
	}
	for k, v := range extra {
		r[k] = v
	}
	return r
}

func TestGraduationRates_ScalesDecimalRates(t *testing.T) {
	fake := newFakeSocrata(t, rowsOK([]Row{
		graduationRow(CohortFourYear, Row{"graduationrate": "0.85"}),
		graduationRow(CohortFiveYear, Row{"graduationrate": "88.5"}),
	}))
	c := newTestClient(t, fake)

	records := c.GraduationRates(context.Background(), "27400", LevelDistrict, "2022-23", "")

	require.Len(t, records, 2)
	require.NotNil(t, records[0].GraduationRate)
	assert.InDelta(t, 85.0, *records[0].GraduationRate, 1e-9, "decimal rates scale by 100")
	require.NotNil(t, records[1].GraduationRate)
	assert.InDelta(t, 88.5, *records[1].GraduationRate, 1e-9, "whole percentages pass through")
	assert.Equal(t, CohortFourYear, records[0].Cohort)
}

func TestGraduationRates_SmallCohortSuppression(t *testing.T) {
	fake := newFakeSocrata(t, rowsOK([]Row{
		graduationRow(CohortFourYear, Row{"dat": "Suppressed N<10"}),
		graduationRow(CohortFiveYear, Row{"dat": "Some other note", "graduationrate": "0.9"}),
	}))
	c := newTestClient(t, fake)

	records := c.GraduationRates(context.Background(), "27400", LevelDistrict, "2022-23", "")

	require.Len(t, records, 2)
	assert.True(t, records[0].IsSuppressed)
	assert.Nil(t, records[0].GraduationRate)
	assert.False(t, records[1].IsSuppressed, "only the small-cohort sentinel suppresses")
}

func TestGraduationRates_DatasetSplitAndFilters(t *testing.T) {
	var gotDataset, gotWhere string
	fake := newFakeSocrata(t, func(id string, params url.Values) (int, []Row) {
		gotDataset = id
		gotWhere = params.Get("$where")
		return http.StatusOK, nil
	})
	c := newTestClient(t, fake)

	c.GraduationRates(context.Background(), "27400", "", "2024-25", "Low-Income")
	assert.Equal(t, c.settings.Datasets.GraduationSince25, gotDataset)
	assert.Contains(t, gotWhere, "studentgroup='Low-Income'")

	c.GraduationRates(context.Background(), "27400", "", "2022-23", "")
	assert.Equal(t, c.settings.Datasets.Graduation, gotDataset)
	assert.Contains(t, gotWhere, "studentgroup='All Students'")
}

func TestGraduationTrend_FourYearCohortOnly(t *testing.T) {
	fake := newFakeSocrata(t, func(_ string, params url.Values) (int, []Row) {
		where := params.Get("$where")
		switch {
		case strings.Contains(where, "schoolyear='2021-22'"):
			return http.StatusOK, []Row{
				graduationRow(CohortFiveYear, Row{"schoolyear": "2021-22", "graduationrate": "0.95"}),
				graduationRow(CohortFourYear, Row{"schoolyear": "2021-22", "graduationrate": "0.82"}),
			}
		case strings.Contains(where, "schoolyear='2022-23'"):
			// Only a five-year cohort this year: skipped.
			return http.StatusOK, []Row{
				graduationRow(CohortFiveYear, Row{"schoolyear": "2022-23", "graduationrate": "0.9"}),
			}
		case strings.Contains(where, "schoolyear='2023-24'"):
			return http.StatusOK, []Row{
				graduationRow(CohortFourYear, Row{"schoolyear": "2023-24", "graduationrate": "0.87"}),
			}
		}
		return http.StatusOK, nil
	})
	c := newTestClient(t, fake)

	trend := c.GraduationTrend(context.Background(), "27400", LevelDistrict, "2021-22", "2023-24")

	assert.Equal(t, map[string]float64{
		"2021-22": 82.0,
		"2023-24": 87.0,
	}, trend)
}

func TestGraduationRates_FailOpen(t *testing.T) {
	fake := newFakeSocrata(t, func(string, url.Values) (int, []Row) {
		return http.StatusBadGateway, nil
	})
	c := newTestClient(t, fake)

	assert.Empty(t, c.GraduationRates(context.Background(), "27400", LevelDistrict, "2022-23", ""))
}
