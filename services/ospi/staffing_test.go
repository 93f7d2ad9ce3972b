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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staffingFake routes staffing rows from the teachers dataset and an
// enrollment row for the ratio lookup.
func staffingFake(t *testing.T, staffing []Row, enrollment []Row) (*fakeSocrata, *Client) {
	t.Helper()
	settings := testSettings(t)
	fake := newFakeSocrata(t, func(id string, _ url.Values) (int, []Row) {
		switch id {
		case settings.Datasets.Teachers:
			return http.StatusOK, staffing
		case settings.Datasets.Enrollment:
			return http.StatusOK, enrollment
		}
		return http.StatusNotFound, nil
	})
	return fake, newTestClient(t, fake)
}

func TestStaffing_DistrictRowsUseLEAFields(t *testing.T) {
	var gotWhere string
	settings := testSettings(t)
	fake := newFakeSocrata(t, func(id string, params url.Values) (int, []Row) {
		if id == settings.Datasets.Teachers {
			gotWhere = params.Get("$where")
		}
		return http.StatusOK, nil
	})
	c := newTestClient(t, fake)

	c.Staffing(context.Background(), "27400", LevelDistrict, "2024-25")

	assert.Contains(t, gotWhere, "leacode='27400'")
	assert.Contains(t, gotWhere, "organizationlevel='LEA'")
	assert.Contains(t, gotWhere, "demographiccategory='All'")
}

func TestStaffing_SchoolRowsUseSchoolFields(t *testing.T) {
	var gotWhere string
	settings := testSettings(t)
	fake := newFakeSocrata(t, func(id string, params url.Values) (int, []Row) {
		if id == settings.Datasets.Teachers {
			gotWhere = params.Get("$where")
		}
		return http.StatusOK, nil
	})
	c := newTestClient(t, fake)

	c.Staffing(context.Background(), "3456", LevelSchool, "2024-25")

	assert.Contains(t, gotWhere, "schoolcode='3456'")
	assert.Contains(t, gotWhere, "organizationlevel='School'")
}

func TestStaffing_DerivesStudentTeacherRatio(t *testing.T) {
	_, c := staffingFake(t,
		[]Row{{
			"leaname":            "Peninsula School District",
			"schoolyear":         "2024-25",
			"teachercount":       "50",
			"avgyearsexperience": "12.4",
			"ma_percent":         "0.68",
		}},
		[]Row{{"all_students": "1000"}},
	)

	records := c.Staffing(context.Background(), "27400", LevelDistrict, "2024-25")

	require.Len(t, records, 1)
	r := records[0]
	require.NotNil(t, r.TeacherCount)
	assert.Equal(t, 50, *r.TeacherCount)
	require.NotNil(t, r.StudentTeacherRatio)
	assert.InDelta(t, 20.0, *r.StudentTeacherRatio, 1e-9)
	require.NotNil(t, r.AvgYearsExperience)
	assert.InDelta(t, 12.4, *r.AvgYearsExperience, 1e-9)
	require.NotNil(t, r.PercentWithMasters)
	assert.InDelta(t, 68.0, *r.PercentWithMasters, 1e-9, "decimal share scales to percent")
	assert.Equal(t, "Peninsula School District", r.OrganizationName)
}

func TestStaffing_NilRatioWhenTeacherCountZeroOrMissing(t *testing.T) {
	tests := []struct {
		name string
		row  Row
	}{
		{"zero teachers", Row{"leaname": "Tiny SD", "teachercount": "0"}},
		{"missing teachers", Row{"leaname": "Tiny SD"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := staffingFake(t, []Row{tt.row}, []Row{{"all_students": "1000"}})

			records := c.Staffing(context.Background(), "99999", LevelDistrict, "2024-25")

			require.Len(t, records, 1)
			assert.Nil(t, records[0].StudentTeacherRatio)
		})
	}
}

func TestStaffing_NilRatioWhenEnrollmentUnavailable(t *testing.T) {
	_, c := staffingFake(t,
		[]Row{{"leaname": "Peninsula School District", "teachercount": "50"}},
		nil,
	)

	records := c.Staffing(context.Background(), "27400", LevelDistrict, "2024-25")

	require.Len(t, records, 1)
	require.NotNil(t, records[0].TeacherCount)
	assert.Nil(t, records[0].StudentTeacherRatio)
}

func TestStaffing_MastersPercentPassesThroughWhenAlreadyScaled(t *testing.T) {
	_, c := staffingFake(t,
		[]Row{{"leaname": "Peninsula School District", "ma_percent": "68.2"}},
		nil,
	)

	records := c.Staffing(context.Background(), "27400", LevelDistrict, "2024-25")

	require.Len(t, records, 1)
	require.NotNil(t, records[0].PercentWithMasters)
	assert.InDelta(t, 68.2, *records[0].PercentWithMasters, 1e-9)
}

func TestStaffing_FailOpen(t *testing.T) {
	fake := newFakeSocrata(t, func(string, url.Values) (int, []Row) {
		return http.StatusInternalServerError, nil
	})
	c := newTestClient(t, fake)

	assert.Empty(t, c.Staffing(context.Background(), "27400", LevelDistrict, "2024-25"))
}
